package storage

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Klingon-tech/klingnet-ledger/internal/log"
)

// levelOptions are tuned for a write-mostly snapshot store of modest size.
var levelOptions = opt.Options{
	Compression:            opt.NoCompression,
	BlockCacheCapacity:     32 * opt.MiB,
	WriteBuffer:            16 * opt.MiB,
	DisableSeeksCompaction: true,
}

// LevelDB implements DB using goleveldb.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB opens or creates a LevelDB database at path. A corrupted
// database is recovered before use.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, &levelOptions)
	var corrupted *ldberrors.ErrCorrupted
	if errors.As(err, &corrupted) {
		log.Storage.Warn().Str("path", path).Err(err).Msg("LevelDB corruption detected, recovering")
		db, err = leveldb.RecoverFile(path, &levelOptions)
	}
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}
	return &LevelDB{db: db}, nil
}

// Get retrieves a value by key. Returns ErrNotFound if the key does not exist.
func (l *LevelDB) Get(key []byte) ([]byte, error) {
	val, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("leveldb get %x: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get: %w", err)
	}
	return val, nil
}

// Put stores a key-value pair.
func (l *LevelDB) Put(key, value []byte) error {
	if err := l.db.Put(key, value, nil); err != nil {
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

// Delete removes a key.
func (l *LevelDB) Delete(key []byte) error {
	if err := l.db.Delete(key, nil); err != nil {
		return fmt.Errorf("leveldb delete: %w", err)
	}
	return nil
}

// Has checks if a key exists.
func (l *LevelDB) Has(key []byte) (bool, error) {
	ok, err := l.db.Has(key, nil)
	if err != nil {
		return false, fmt.Errorf("leveldb has: %w", err)
	}
	return ok, nil
}

// ForEach iterates over all keys with the given prefix in key order.
// The iterator reads a snapshot, so fn may write to the database.
func (l *LevelDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	it := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	for it.Next() {
		key := append([]byte(nil), it.Key()...)
		val := append([]byte(nil), it.Value()...)
		if err := fn(key, val); err != nil {
			return err
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("leveldb iterate: %w", err)
	}
	return nil
}

// NewBatch returns a batch applied with a single atomic Write.
func (l *LevelDB) NewBatch() Batch {
	return &levelBatch{db: l.db, b: new(leveldb.Batch)}
}

// Close closes the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

type levelBatch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (lb *levelBatch) Put(key, value []byte) error {
	lb.b.Put(key, value)
	return nil
}

func (lb *levelBatch) Delete(key []byte) error {
	lb.b.Delete(key)
	return nil
}

func (lb *levelBatch) Commit() error {
	if err := lb.db.Write(lb.b, nil); err != nil {
		return fmt.Errorf("leveldb batch commit: %w", err)
	}
	return nil
}
