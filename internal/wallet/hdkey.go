package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/tyler-smith/go-bip32"
)

// BIP-44 derivation path constants.
// Full path: m/44'/CoinType'/account'/change/index
const (
	PurposeBIP44 = bip32.FirstHardenedChild + 44

	// CoinTypeKlingnet is the coin type shared with the Klingnet chain
	// wallet, so one mnemonic controls the same keys in both.
	CoinTypeKlingnet = bip32.FirstHardenedChild + 8888

	ChangeExternal = 0
	ChangeInternal = 1
)

// ErrKeyNotFound is returned by FindKey when no key in the scanned range
// owns the public key.
var ErrKeyNotFound = errors.New("no derived key matches public key")

// HDKey represents a hierarchical deterministic key (BIP-32).
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master HD key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DeriveChild derives a child key at the given index.
// For hardened derivation, add bip32.FirstHardenedChild to the index.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &HDKey{key: child}, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// DeriveKey derives the key at m/44'/8888'/account'/change/index.
func (k *HDKey) DeriveKey(account, change, index uint32) (*HDKey, error) {
	return k.DerivePath(
		PurposeBIP44,
		CoinTypeKlingnet,
		bip32.FirstHardenedChild+account,
		change,
		index,
	)
}

// FindKey scans indices [0, gap) of the external chain of account for the
// key whose compressed public key equals pubKey.
func (k *HDKey) FindKey(account uint32, pubKey []byte, gap uint32) (*HDKey, uint32, error) {
	chain, err := k.DerivePath(PurposeBIP44, CoinTypeKlingnet, bip32.FirstHardenedChild+account, ChangeExternal)
	if err != nil {
		return nil, 0, err
	}
	for i := uint32(0); i < gap; i++ {
		child, err := chain.DeriveChild(i)
		if err != nil {
			// Invalid BIP-32 child, skip the index.
			continue
		}
		if bytes.Equal(child.PublicKeyBytes(), pubKey) {
			return child, i, nil
		}
	}
	return nil, 0, ErrKeyNotFound
}

// PrivateKeyBytes returns the raw 32-byte private key.
// Returns nil if this is a public-only key.
func (k *HDKey) PrivateKeyBytes() []byte {
	if !k.key.IsPrivate {
		return nil
	}
	// bip32 Key.Key is 33 bytes with a leading 0x00 for private keys.
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// PublicKeyBytes returns the compressed 33-byte public key, the form
// stored in an output's PubKey.
func (k *HDKey) PublicKeyBytes() []byte {
	return k.key.PublicKey().Key
}

// PublicKeyHex returns PublicKeyBytes hex encoded.
func (k *HDKey) PublicKeyHex() string {
	return hex.EncodeToString(k.PublicKeyBytes())
}

// Signer returns the private key of this HD key for signing inputs.
func (k *HDKey) Signer() (*crypto.PrivateKey, error) {
	priv := k.PrivateKeyBytes()
	if priv == nil {
		return nil, fmt.Errorf("cannot create signer from public key")
	}
	return crypto.PrivateKeyFromBytes(priv)
}

// IsPrivate returns true if this key contains a private key.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate
}

// Depth returns the derivation depth (0 for master).
func (k *HDKey) Depth() uint8 {
	return k.key.Depth
}

// Neuter returns a public-key-only copy.
func (k *HDKey) Neuter() *HDKey {
	return &HDKey{key: k.key.PublicKey()}
}
