package utxo

import (
	"errors"
	"math"
	"testing"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

func makeOutpoint(data string, index uint32) types.Outpoint {
	return types.Outpoint{
		TxID:  crypto.Hash([]byte(data)),
		Index: index,
	}
}

func makeOutput(value int64) tx.Output {
	return tx.Output{Value: value, PubKey: []byte{0x02, 0x01, 0x02, 0x03}}
}

// Pool must satisfy the validator's read interface.
var _ tx.UTXOProvider = (*Pool)(nil)

func TestPool_AddContainsGet(t *testing.T) {
	p := NewPool()
	op := makeOutpoint("tx1", 0)

	if p.Contains(op) {
		t.Fatal("Contains() should be false before Add()")
	}

	p.Add(op, makeOutput(5000))

	if !p.Contains(op) {
		t.Fatal("Contains() should be true after Add()")
	}
	got, err := p.Get(op)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Value != 5000 {
		t.Errorf("Value = %d, want 5000", got.Value)
	}
}

func TestPool_GetMissing(t *testing.T) {
	p := NewPool()
	_, err := p.Get(makeOutpoint("missing", 0))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestPool_AddOverwrites(t *testing.T) {
	p := NewPool()
	op := makeOutpoint("tx1", 0)
	p.Add(op, makeOutput(1))
	p.Add(op, makeOutput(2))

	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
	got, _ := p.Get(op)
	if got.Value != 2 {
		t.Errorf("Value = %d, want 2 after overwrite", got.Value)
	}
}

func TestPool_Remove(t *testing.T) {
	p := NewPool()
	op := makeOutpoint("tx1", 0)
	p.Add(op, makeOutput(1))

	p.Remove(op)
	if p.Contains(op) {
		t.Error("UTXO should be gone after Remove()")
	}

	// Absent outpoint: no-op.
	p.Remove(op)
	p.Remove(makeOutpoint("never", 3))
	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
}

func TestPool_MultipleOutputs(t *testing.T) {
	p := NewPool()

	// Same tx, different output indices.
	for i := uint32(0); i < 3; i++ {
		p.Add(makeOutpoint("tx1", i), makeOutput(int64(i+1)*1000))
	}

	if p.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", p.Len())
	}
	if p.TotalValue() != 6000 {
		t.Errorf("TotalValue() = %d, want 6000", p.TotalValue())
	}

	p.Remove(makeOutpoint("tx1", 1))
	if !p.Contains(makeOutpoint("tx1", 0)) || !p.Contains(makeOutpoint("tx1", 2)) {
		t.Error("removing one index must not touch its siblings")
	}
}

func TestPool_Clone_Isolated(t *testing.T) {
	p := NewPool()
	op := makeOutpoint("tx1", 0)
	p.Add(op, makeOutput(100))

	c := p.Clone()
	c.Remove(op)
	c.Add(makeOutpoint("tx2", 0), makeOutput(7))

	if !p.Contains(op) {
		t.Error("removing from clone changed the original")
	}
	if p.Contains(makeOutpoint("tx2", 0)) {
		t.Error("adding to clone changed the original")
	}

	c2 := p.Clone()
	out, _ := c2.Get(op)
	out.PubKey[0] = 0xff
	orig, _ := p.Get(op)
	if orig.PubKey[0] != 0x02 {
		t.Error("clone shares public key memory with the original")
	}
}

func TestPool_OutpointsSorted(t *testing.T) {
	p := NewPool()
	ops := []types.Outpoint{
		{TxID: types.Hash{0x03}, Index: 0},
		{TxID: types.Hash{0x01}, Index: 2},
		{TxID: types.Hash{0x01}, Index: 1},
		{TxID: types.Hash{0x02}, Index: 0},
	}
	for _, op := range ops {
		p.Add(op, makeOutput(1))
	}

	got := p.Outpoints()
	if len(got) != len(ops) {
		t.Fatalf("Outpoints() returned %d, want %d", len(got), len(ops))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Less(got[i]) {
			t.Errorf("Outpoints() not sorted at %d: %s >= %s", i, got[i-1], got[i])
		}
	}
}

func TestPool_ForEachStopsOnError(t *testing.T) {
	p := NewPool()
	p.Add(makeOutpoint("a", 0), makeOutput(1))
	p.Add(makeOutpoint("b", 0), makeOutput(1))

	stop := errors.New("stop")
	var calls int
	err := p.ForEach(func(types.Outpoint, tx.Output) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("ForEach() error = %v, want stop", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPool_TotalValueSaturates(t *testing.T) {
	p := NewPool()
	p.Add(makeOutpoint("big", 0), makeOutput(math.MaxInt64))
	p.Add(makeOutpoint("big", 1), makeOutput(math.MaxInt64))
	p.Add(makeOutpoint("small", 0), makeOutput(1))

	if got := p.TotalValue(); got != math.MaxInt64 {
		t.Errorf("TotalValue() = %d, want MaxInt64", got)
	}
}
