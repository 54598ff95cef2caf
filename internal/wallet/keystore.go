package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ErrWalletNotFound is returned when a named wallet file does not exist.
var ErrWalletNotFound = errors.New("wallet not found")

// keystoreFile is the on-disk JSON format for an encrypted wallet.
type keystoreFile struct {
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	EncryptedSeed []byte     `json:"encrypted_seed"`
	Keys          []KeyEntry `json:"keys"`
}

// KeyEntry records a derived key handed out for receiving outputs.
// Only public data is stored; the private key is re-derived from the seed.
type KeyEntry struct {
	Account uint32 `json:"account"`
	Index   uint32 `json:"index"`
	PubKey  string `json:"pubkey"` // hex, compressed
	Label   string `json:"label,omitempty"`
}

// Keystore manages encrypted seed storage on disk, one file per wallet.
type Keystore struct {
	path string
}

// NewKeystore creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.path, name+".wallet")
}

// Create writes a new wallet holding seed encrypted under password.
func (ks *Keystore) Create(name string, seed, password []byte, params EncryptionParams) error {
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid wallet name %q", name)
	}
	path := ks.walletPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("wallet %q already exists", name)
	}

	encrypted, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}

	return ks.writeFile(path, &keystoreFile{
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		EncryptedSeed: encrypted,
		Keys:          []KeyEntry{},
	})
}

// Load decrypts a wallet and returns the seed bytes.
func (ks *Keystore) Load(name string, password []byte) ([]byte, error) {
	kf, err := ks.readFile(name)
	if err != nil {
		return nil, err
	}
	seed, err := Decrypt(kf.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt wallet %q: %w", name, err)
	}
	return seed, nil
}

// AddKey records a derived key. Adding the same (account, index, pubkey)
// twice is a no-op; reusing a path for a different key is an error.
func (ks *Keystore) AddKey(name string, entry KeyEntry) error {
	kf, err := ks.readFile(name)
	if err != nil {
		return err
	}
	for _, existing := range kf.Keys {
		if existing.Account == entry.Account && existing.Index == entry.Index {
			if existing.PubKey == entry.PubKey {
				return nil
			}
			return fmt.Errorf("key path account=%d index=%d already recorded", entry.Account, entry.Index)
		}
	}
	kf.Keys = append(kf.Keys, entry)
	return ks.writeFile(ks.walletPath(name), kf)
}

// Keys returns the recorded keys of a wallet.
func (ks *Keystore) Keys(name string) ([]KeyEntry, error) {
	kf, err := ks.readFile(name)
	if err != nil {
		return nil, err
	}
	return kf.Keys, nil
}

// NextIndex returns one past the highest recorded index of account.
func (ks *Keystore) NextIndex(name string, account uint32) (uint32, error) {
	keys, err := ks.Keys(name)
	if err != nil {
		return 0, err
	}
	var next uint32
	for _, k := range keys {
		if k.Account == account && k.Index >= next {
			next = k.Index + 1
		}
	}
	return next, nil
}

// List returns the names of all wallet files in the keystore, sorted.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".wallet" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%w: %q", ErrWalletNotFound, name)
	}
	return os.Remove(path)
}

func (ks *Keystore) writeFile(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile(name string) (*keystoreFile, error) {
	data, err := os.ReadFile(ks.walletPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrWalletNotFound, name)
		}
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}
