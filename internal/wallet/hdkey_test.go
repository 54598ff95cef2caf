package wallet

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// testSeed returns the seed of the BIP-39 "abandon ... about" / "TREZOR" vector.
func testSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := SeedFromMnemonic(vectorMnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	return seed
}

func testMaster(t *testing.T) *HDKey {
	t.Helper()
	master, err := NewMasterKey(testSeed(t))
	if err != nil {
		t.Fatalf("NewMasterKey() error: %v", err)
	}
	return master
}

func TestNewMasterKey(t *testing.T) {
	master := testMaster(t)

	if !master.IsPrivate() {
		t.Error("master key should be private")
	}
	if master.Depth() != 0 {
		t.Errorf("master key depth = %d, want 0", master.Depth())
	}
	if n := len(master.PrivateKeyBytes()); n != 32 {
		t.Errorf("private key length = %d, want 32", n)
	}
	if n := len(master.PublicKeyBytes()); n != crypto.PublicKeySize {
		t.Errorf("public key length = %d, want %d", n, crypto.PublicKeySize)
	}
}

func TestNewMasterKey_InvalidSeedLength(t *testing.T) {
	for _, n := range []int{0, 32, 128} {
		if _, err := NewMasterKey(make([]byte, n)); err == nil {
			t.Errorf("expected error for %d-byte seed", n)
		}
	}
}

func TestDeriveKey(t *testing.T) {
	master := testMaster(t)

	key, err := master.DeriveKey(0, ChangeExternal, 0)
	if err != nil {
		t.Fatalf("DeriveKey() error: %v", err)
	}
	if key.Depth() != 5 {
		t.Errorf("depth = %d, want 5", key.Depth())
	}

	again, _ := testMaster(t).DeriveKey(0, ChangeExternal, 0)
	if !bytes.Equal(key.PrivateKeyBytes(), again.PrivateKeyBytes()) {
		t.Error("derivation should be deterministic")
	}

	other := []struct{ account, change, index uint32 }{
		{1, ChangeExternal, 0},
		{0, ChangeInternal, 0},
		{0, ChangeExternal, 1},
	}
	for _, o := range other {
		k, err := master.DeriveKey(o.account, o.change, o.index)
		if err != nil {
			t.Fatal(err)
		}
		if bytes.Equal(k.PublicKeyBytes(), key.PublicKeyBytes()) {
			t.Errorf("path %v should give a different key", o)
		}
	}
}

func TestNeuter_DeriveChild(t *testing.T) {
	master := testMaster(t)
	acct, err := master.DerivePath(PurposeBIP44, CoinTypeKlingnet)
	if err != nil {
		t.Fatal(err)
	}

	privChild, _ := acct.DeriveChild(3)
	pubChild, err := acct.Neuter().DeriveChild(3)
	if err != nil {
		t.Fatalf("public derivation error: %v", err)
	}
	if pubChild.IsPrivate() {
		t.Error("child of neutered key should be public")
	}
	if !bytes.Equal(privChild.PublicKeyBytes(), pubChild.PublicKeyBytes()) {
		t.Error("public derivation should match private derivation")
	}
}

func TestFindKey(t *testing.T) {
	master := testMaster(t)
	want, _ := master.DeriveKey(2, ChangeExternal, 7)

	found, idx, err := master.FindKey(2, want.PublicKeyBytes(), 20)
	if err != nil {
		t.Fatalf("FindKey() error: %v", err)
	}
	if idx != 7 {
		t.Errorf("index = %d, want 7", idx)
	}
	if !bytes.Equal(found.PrivateKeyBytes(), want.PrivateKeyBytes()) {
		t.Error("found the wrong key")
	}

	if _, _, err := master.FindKey(2, want.PublicKeyBytes(), 7); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("gap too small: err = %v, want ErrKeyNotFound", err)
	}
	if _, _, err := master.FindKey(0, want.PublicKeyBytes(), 20); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("wrong account: err = %v, want ErrKeyNotFound", err)
	}
}

func TestSigner_SignsInput(t *testing.T) {
	key, _ := testMaster(t).DeriveKey(0, ChangeExternal, 0)
	signer, err := key.Signer()
	if err != nil {
		t.Fatalf("Signer() error: %v", err)
	}
	if !bytes.Equal(signer.PublicKey(), key.PublicKeyBytes()) {
		t.Fatal("signer public key differs from HD public key")
	}

	prev := types.NewOutpoint(crypto.Hash([]byte("funding")), 0)
	b := tx.NewBuilder().
		AddInput(prev).
		AddOutput(10, key.PublicKeyBytes())
	if err := b.Sign(signer); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	transaction := b.Build()

	msg := transaction.SigHash(0)
	if !crypto.VerifySignature(key.PublicKeyBytes(), msg[:], transaction.Inputs[0].Signature) {
		t.Error("signature from HD-derived key should verify")
	}
}

func TestSigner_PublicKeyOnly(t *testing.T) {
	if _, err := testMaster(t).Neuter().Signer(); err == nil {
		t.Error("Signer() from public key should return error")
	}
}

func TestPublicKeyHex(t *testing.T) {
	key, _ := testMaster(t).DeriveKey(0, ChangeExternal, 0)
	if len(key.PublicKeyHex()) != 2*crypto.PublicKeySize {
		t.Errorf("PublicKeyHex() = %q", key.PublicKeyHex())
	}
}
