package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Denomination constants.
// 1 coin = 10^12 base units. All pool values are in base units.
const (
	Decimals  = 12
	Coin      = 1_000_000_000_000 // 10^12 base units per coin
	MilliCoin = 1_000_000_000     // 10^9
	MicroCoin = 1_000_000         // 10^6
)

// genesisTag domain-separates the genesis txid from ordinary transaction ids.
const genesisTag = "klingnet-ledger/genesis"

// Genesis describes the initial allocation of a ledger.
type Genesis struct {
	ChainID   string `json:"chain_id"`
	Timestamp uint64 `json:"timestamp"`
	ExtraData string `json:"extra_data,omitempty"`

	// Initial allocations, in order. Allocation i becomes the UTXO
	// (TxID(), i).
	Alloc []Allocation `json:"alloc"`
}

// Allocation assigns value base units to a compressed public key.
type Allocation struct {
	PubKey string `json:"pubkey"`
	Value  int64  `json:"value"`
}

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}

	return nil
}

// Validate checks that the genesis configuration is valid.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}

	var total int64
	for i, a := range g.Alloc {
		if _, err := decodeAllocKey(a.PubKey); err != nil {
			return fmt.Errorf("alloc %d: %w", i, err)
		}
		if a.Value < 0 {
			return fmt.Errorf("alloc %d: negative value %d", i, a.Value)
		}
		if total > math.MaxInt64-a.Value {
			return fmt.Errorf("alloc %d: total allocation overflows", i)
		}
		total += a.Value
	}

	return nil
}

func decodeAllocKey(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("pubkey: %w", err)
	}
	if err := crypto.ValidatePublicKey(b); err != nil {
		return nil, fmt.Errorf("pubkey: %w", err)
	}
	return b, nil
}

// Hash returns a BLAKE3 hash of the genesis configuration.
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}

// TxID returns the pseudo transaction id every genesis UTXO is keyed
// under. It is derived from the whole genesis, so two different
// allocations never share outpoints.
func (g *Genesis) TxID() (types.Hash, error) {
	h, err := g.Hash()
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.HashParts([]byte(genesisTag), h[:]), nil
}

// Pool builds the initial UTXO pool from the allocations.
func (g *Genesis) Pool() (*utxo.Pool, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	txid, err := g.TxID()
	if err != nil {
		return nil, err
	}

	pool := utxo.NewPool()
	for i, a := range g.Alloc {
		pub, err := decodeAllocKey(a.PubKey)
		if err != nil {
			return nil, fmt.Errorf("alloc %d: %w", i, err)
		}
		pool.Add(types.NewOutpoint(txid, uint32(i)), tx.Output{Value: a.Value, PubKey: pub})
	}
	return pool, nil
}
