package config

import (
	"encoding/hex"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

func testPubKey(t *testing.T) string {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return hex.EncodeToString(key.PublicKey())
}

func testGenesis(t *testing.T) *Genesis {
	t.Helper()
	return &Genesis{
		ChainID:   "klingnet-ledger-test",
		Timestamp: 1_700_000_000,
		Alloc: []Allocation{
			{PubKey: testPubKey(t), Value: 100 * Coin},
			{PubKey: testPubKey(t), Value: 5 * MilliCoin},
		},
	}
}

func TestGenesis_Validate(t *testing.T) {
	valid := testPubKey(t)
	tests := []struct {
		name    string
		mutate  func(g *Genesis)
		wantErr bool
	}{
		{"valid", func(g *Genesis) {}, false},
		{"empty alloc", func(g *Genesis) { g.Alloc = nil }, false},
		{"zero value", func(g *Genesis) { g.Alloc[0].Value = 0 }, false},
		{"missing chain id", func(g *Genesis) { g.ChainID = "" }, true},
		{"negative value", func(g *Genesis) { g.Alloc[1].Value = -1 }, true},
		{"bad hex", func(g *Genesis) { g.Alloc[0].PubKey = "zz" }, true},
		{"short key", func(g *Genesis) { g.Alloc[0].PubKey = valid[:20] }, true},
		{"overflow", func(g *Genesis) {
			g.Alloc[0].Value = math.MaxInt64
			g.Alloc[1].Value = 1
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGenesis(t)
			tt.mutate(g)
			err := g.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenesis_Pool(t *testing.T) {
	g := testGenesis(t)

	pool, err := g.Pool()
	if err != nil {
		t.Fatalf("Pool: %v", err)
	}
	if pool.Len() != len(g.Alloc) {
		t.Fatalf("pool size = %d, want %d", pool.Len(), len(g.Alloc))
	}
	if pool.TotalValue() != 100*Coin+5*MilliCoin {
		t.Errorf("total value = %d", pool.TotalValue())
	}

	txid, err := g.TxID()
	if err != nil {
		t.Fatalf("TxID: %v", err)
	}
	for i, a := range g.Alloc {
		out, err := pool.Get(types.NewOutpoint(txid, uint32(i)))
		if err != nil {
			t.Fatalf("alloc %d missing: %v", i, err)
		}
		if out.Value != a.Value {
			t.Errorf("alloc %d value = %d, want %d", i, out.Value, a.Value)
		}
		if hex.EncodeToString(out.PubKey) != a.PubKey {
			t.Errorf("alloc %d pubkey mismatch", i)
		}
	}
}

func TestGenesis_Pool_Deterministic(t *testing.T) {
	g := testGenesis(t)

	a, err := g.Pool()
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.Pool()
	if err != nil {
		t.Fatal(err)
	}
	if utxo.Commitment(a) != utxo.Commitment(b) {
		t.Error("same genesis produced different pools")
	}

	g.Timestamp++
	c, err := g.Pool()
	if err != nil {
		t.Fatal(err)
	}
	if utxo.Commitment(a) == utxo.Commitment(c) {
		t.Error("different genesis produced the same pool")
	}
}

func TestGenesis_Pool_Invalid(t *testing.T) {
	g := testGenesis(t)
	g.Alloc[0].Value = -5
	if _, err := g.Pool(); err == nil {
		t.Fatal("expected error for invalid genesis")
	}
}

func TestGenesis_TxIDNotPlainHash(t *testing.T) {
	g := testGenesis(t)
	h, _ := g.Hash()
	id, _ := g.TxID()
	if h == id {
		t.Error("txid should be domain separated from the genesis hash")
	}
	if id.IsZero() {
		t.Error("txid is zero")
	}
}

func TestGenesis_SaveLoad(t *testing.T) {
	g := testGenesis(t)
	path := filepath.Join(t.TempDir(), "genesis.json")

	if err := g.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("LoadGenesis: %v", err)
	}

	want, _ := g.Hash()
	got, _ := loaded.Hash()
	if got != want {
		t.Error("loaded genesis hash differs")
	}
}

func TestLoadGenesis_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadGenesis(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := testGenesis(t)
	bad.ChainID = ""
	path := filepath.Join(dir, "bad.json")
	if err := bad.Save(path); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGenesis(path); err == nil {
		t.Error("expected error for invalid genesis")
	}
}

func TestGenesis_PoolGetAbsent(t *testing.T) {
	pool, err := testGenesis(t).Pool()
	if err != nil {
		t.Fatal(err)
	}
	_, err = pool.Get(types.Outpoint{Index: 7})
	if !errors.Is(err, utxo.ErrNotFound) {
		t.Errorf("Get absent = %v, want ErrNotFound", err)
	}
}
