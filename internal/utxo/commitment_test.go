package utxo

import (
	"testing"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

func TestCommitment_Empty(t *testing.T) {
	if root := Commitment(NewPool()); !root.IsZero() {
		t.Error("empty pool commitment should be zero hash")
	}
}

func TestCommitment_SingleUTXO(t *testing.T) {
	p := NewPool()
	op := makeOutpoint("tx1", 0)
	p.Add(op, makeOutput(1000))

	root := Commitment(p)
	if root.IsZero() {
		t.Error("single UTXO commitment should not be zero")
	}
	out, _ := p.Get(op)
	if root != hashUTXO(op, out) {
		t.Error("single-leaf root should equal the leaf hash")
	}
}

func TestCommitment_OrderIndependent(t *testing.T) {
	a := NewPool()
	a.Add(makeOutpoint("tx1", 0), makeOutput(1000))
	a.Add(makeOutpoint("tx2", 1), makeOutput(2000))
	a.Add(makeOutpoint("tx3", 0), makeOutput(3000))

	b := NewPool()
	b.Add(makeOutpoint("tx3", 0), makeOutput(3000))
	b.Add(makeOutpoint("tx1", 0), makeOutput(1000))
	b.Add(makeOutpoint("tx2", 1), makeOutput(2000))

	if Commitment(a) != Commitment(b) {
		t.Error("commitment should not depend on insertion order")
	}
}

func TestCommitment_ChangesWithContent(t *testing.T) {
	p := NewPool()
	p.Add(makeOutpoint("tx1", 0), makeOutput(1000))
	before := Commitment(p)

	p.Add(makeOutpoint("tx1", 0), makeOutput(1001))
	if Commitment(p) == before {
		t.Error("changing a value should change the commitment")
	}
}

func TestMerkleRoot_OddLeaves(t *testing.T) {
	h1 := crypto.Hash([]byte("a"))
	h2 := crypto.Hash([]byte("b"))
	h3 := crypto.Hash([]byte("c"))

	want := crypto.HashConcat(crypto.HashConcat(h1, h2), crypto.HashConcat(h3, h3))
	if got := merkleRoot([]types.Hash{h1, h2, h3}); got != want {
		t.Errorf("merkleRoot = %s, want %s", got, want)
	}
}
