// Package utxo manages the pool of unspent transaction outputs.
package utxo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dolthub/swiss"

	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// ErrNotFound is returned by Get for an outpoint that is not in the pool.
var ErrNotFound = errors.New("utxo not found")

// minCapacity is the initial slot count of an empty pool.
const minCapacity = 64

// Pool maps outpoints to the outputs they identify. Every entry is an
// output not yet consumed by an accepted transaction.
//
// Pool does no locking; callers hold it exclusively while mutating.
type Pool struct {
	utxos *swiss.Map[types.Outpoint, tx.Output]
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return newPool(minCapacity)
}

func newPool(capacity int) *Pool {
	if capacity < minCapacity {
		capacity = minCapacity
	}
	return &Pool{utxos: swiss.NewMap[types.Outpoint, tx.Output](uint32(capacity))}
}

// Clone returns a deep copy that shares no memory with p.
func (p *Pool) Clone() *Pool {
	c := newPool(p.Len())
	p.utxos.Iter(func(op types.Outpoint, out tx.Output) bool {
		c.utxos.Put(op, out.Clone())
		return false
	})
	return c
}

// Contains reports whether op is currently spendable.
func (p *Pool) Contains(op types.Outpoint) bool {
	return p.utxos.Has(op)
}

// Get returns the output identified by op.
func (p *Pool) Get(op types.Outpoint) (tx.Output, error) {
	out, ok := p.utxos.Get(op)
	if !ok {
		return tx.Output{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return out, nil
}

// Add inserts or overwrites the entry for op.
func (p *Pool) Add(op types.Outpoint, out tx.Output) {
	p.utxos.Put(op, out)
}

// Remove deletes the entry for op. Removing an absent outpoint is a no-op.
func (p *Pool) Remove(op types.Outpoint) {
	p.utxos.Delete(op)
}

// Len returns the number of entries.
func (p *Pool) Len() int {
	return p.utxos.Count()
}

// Outpoints returns every outpoint in the pool in ascending order.
func (p *Pool) Outpoints() []types.Outpoint {
	ops := make([]types.Outpoint, 0, p.Len())
	p.utxos.Iter(func(op types.Outpoint, _ tx.Output) bool {
		ops = append(ops, op)
		return false
	})
	sort.Slice(ops, func(i, j int) bool { return ops[i].Less(ops[j]) })
	return ops
}

// ForEach calls fn for every entry in ascending outpoint order and stops
// at the first error.
func (p *Pool) ForEach(fn func(op types.Outpoint, out tx.Output) error) error {
	for _, op := range p.Outpoints() {
		out, _ := p.utxos.Get(op)
		if err := fn(op, out); err != nil {
			return err
		}
	}
	return nil
}

// TotalValue sums the value of every entry. The sum saturates at the
// int64 bounds instead of wrapping.
func (p *Pool) TotalValue() int64 {
	var total int64
	p.utxos.Iter(func(_ types.Outpoint, out tx.Output) bool {
		switch {
		case out.Value > 0 && total > math.MaxInt64-out.Value:
			total = math.MaxInt64
		case out.Value < 0 && total < math.MinInt64-out.Value:
			total = math.MinInt64
		default:
			total += out.Value
		}
		return false
	})
	return total
}

// HasUTXO implements tx.UTXOProvider.
func (p *Pool) HasUTXO(op types.Outpoint) bool {
	return p.Contains(op)
}

// GetUTXO implements tx.UTXOProvider.
func (p *Pool) GetUTXO(op types.Outpoint) (tx.Output, error) {
	return p.Get(op)
}
