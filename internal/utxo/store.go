package utxo

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Key prefixes for the UTXO store.
var (
	prefixUTXO = []byte("u/") // u/<txid><index> -> output JSON
	keyMeta    = []byte("m/epoch")
)

// Store persists pool snapshots between runs.
type Store struct {
	db storage.DB
}

// NewStore creates a new UTXO store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// utxoKey builds a storage key for an outpoint: "u/" + txid(32) + index(4).
func utxoKey(op types.Outpoint) []byte {
	key := make([]byte, len(prefixUTXO)+types.HashSize+4)
	copy(key, prefixUTXO)
	copy(key[len(prefixUTXO):], op.TxID[:])
	binary.BigEndian.PutUint32(key[len(prefixUTXO)+types.HashSize:], op.Index)
	return key
}

// parseKey is the inverse of utxoKey.
func parseKey(key []byte) (types.Outpoint, error) {
	if len(key) != len(prefixUTXO)+types.HashSize+4 {
		return types.Outpoint{}, fmt.Errorf("malformed utxo key %x", key)
	}
	var op types.Outpoint
	copy(op.TxID[:], key[len(prefixUTXO):])
	op.Index = binary.BigEndian.Uint32(key[len(prefixUTXO)+types.HashSize:])
	return op, nil
}

// Has checks if a UTXO exists for the given outpoint.
func (s *Store) Has(op types.Outpoint) (bool, error) {
	return s.db.Has(utxoKey(op))
}

// Get retrieves a single stored output.
func (s *Store) Get(op types.Outpoint) (tx.Output, error) {
	data, err := s.db.Get(utxoKey(op))
	if err != nil {
		return tx.Output{}, fmt.Errorf("utxo get: %w", err)
	}
	var out tx.Output
	if err := json.Unmarshal(data, &out); err != nil {
		return tx.Output{}, fmt.Errorf("utxo unmarshal: %w", err)
	}
	return out, nil
}

// Load reads the stored snapshot into a new pool.
func (s *Store) Load() (*Pool, error) {
	p := NewPool()
	err := s.db.ForEach(prefixUTXO, func(key, value []byte) error {
		op, err := parseKey(key)
		if err != nil {
			return err
		}
		var out tx.Output
		if err := json.Unmarshal(value, &out); err != nil {
			return fmt.Errorf("utxo unmarshal %s: %w", op, err)
		}
		p.Add(op, out)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load utxo pool: %w", err)
	}
	return p, nil
}

// Save replaces the stored snapshot with pool and records the epoch
// counter. The write is atomic when the database supports batches.
func (s *Store) Save(pool *Pool, epoch uint64) error {
	var stale [][]byte
	err := s.db.ForEach(prefixUTXO, func(key, _ []byte) error {
		op, err := parseKey(key)
		if err != nil || !pool.Contains(op) {
			k := make([]byte, len(key))
			copy(k, key)
			stale = append(stale, k)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan utxo store: %w", err)
	}

	b := newBatch(s.db)
	for _, key := range stale {
		if err := b.Delete(key); err != nil {
			return fmt.Errorf("utxo delete: %w", err)
		}
	}
	err = pool.ForEach(func(op types.Outpoint, out tx.Output) error {
		data, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("utxo marshal %s: %w", op, err)
		}
		return b.Put(utxoKey(op), data)
	})
	if err != nil {
		return err
	}
	if err := b.Put(keyMeta, binary.BigEndian.AppendUint64(nil, epoch)); err != nil {
		return fmt.Errorf("epoch put: %w", err)
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("commit utxo snapshot: %w", err)
	}
	return nil
}

// Epoch returns the epoch counter stored by the last Save, or 0.
func (s *Store) Epoch() (uint64, error) {
	ok, err := s.db.Has(keyMeta)
	if err != nil || !ok {
		return 0, err
	}
	data, err := s.db.Get(keyMeta)
	if err != nil {
		return 0, fmt.Errorf("epoch get: %w", err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("malformed epoch record (%d bytes)", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// Initialized reports whether a snapshot was ever saved.
func (s *Store) Initialized() (bool, error) {
	return s.db.Has(keyMeta)
}

// newBatch returns an atomic batch if db supports one, otherwise a batch
// that writes straight through.
func newBatch(db storage.DB) storage.Batch {
	if b, ok := db.(storage.Batcher); ok {
		return b.NewBatch()
	}
	return directBatch{db}
}

type directBatch struct{ db storage.DB }

func (d directBatch) Put(key, value []byte) error { return d.db.Put(key, value) }
func (d directBatch) Delete(key []byte) error     { return d.db.Delete(key) }
func (d directBatch) Commit() error               { return nil }
