package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Klingon-tech/klingnet-ledger/config"
	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/internal/wallet"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
)

// mnemonicEnv names the environment variable sign reads a mnemonic from.
const mnemonicEnv = "KLINGNET_MNEMONIC"

// defaultGap is how many external indices sign scans for an input's owner.
const defaultGap = 20

// ── Key sources ─────────────────────────────────────────────────────────

// masterKey resolves the signing seed: an encrypted wallet when walletName
// is set, otherwise KLINGNET_MNEMONIC, otherwise a hidden terminal prompt.
func masterKey(cfg *config.Config, walletName string) (*wallet.HDKey, error) {
	if walletName != "" {
		ks, err := wallet.NewKeystore(cfg.WalletDir())
		if err != nil {
			return nil, err
		}
		password, err := readPassword("Enter password: ")
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		seed, err := ks.Load(walletName, password)
		if err != nil {
			return nil, err
		}
		defer zero(seed)
		return wallet.NewMasterKey(seed)
	}

	mnemonic := os.Getenv(mnemonicEnv)
	if mnemonic == "" {
		b, err := readPassword("Enter mnemonic: ")
		if err != nil {
			return nil, fmt.Errorf("read mnemonic: %w", err)
		}
		mnemonic = string(b)
	}
	return wallet.MasterFromMnemonic(mnemonic, "")
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ── Signing ─────────────────────────────────────────────────────────────

// signTx signs every input of t. With a fixed index each input is signed
// by that key; otherwise the owner of each referenced output in pool is
// searched among the first gap external keys of account.
func signTx(t *tx.Transaction, master *wallet.HDKey, pool *utxo.Pool, account uint32, index int, gap uint32) error {
	b := tx.FromTransaction(t)

	if index >= 0 {
		key, err := master.DeriveKey(account, wallet.ChangeExternal, uint32(index))
		if err != nil {
			return err
		}
		signer, err := key.Signer()
		if err != nil {
			return err
		}
		defer signer.Zero()
		return b.Sign(signer)
	}

	if pool == nil {
		return fmt.Errorf("no pool to look up input owners (pass --index)")
	}
	for i, in := range t.Inputs {
		out, err := pool.Get(in.PrevOut)
		if err != nil {
			return fmt.Errorf("input %d: %w (pass --index for outputs created this epoch)", i, err)
		}
		key, _, err := master.FindKey(account, out.PubKey, gap)
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		signer, err := key.Signer()
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		err = b.SignInput(i, signer)
		signer.Zero()
		if err != nil {
			return err
		}
	}
	return nil
}

// ── Commands ────────────────────────────────────────────────────────────

func cmdKeygen(cfg *config.Config, args []string) {
	fs := newFlagSet("keygen")
	walletName := fs.String("wallet", "", "Save the seed encrypted under this wallet name")
	account := fs.Uint("account", 0, "BIP-44 account")
	if pos := parseArgs(fs, args); len(pos) != 0 {
		fatal("Usage: klingnet-ledger keygen [--wallet <name>] [--account n]")
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	defer zero(seed)

	master, err := wallet.NewMasterKey(seed)
	if err != nil {
		fatal("derive master key: %v", err)
	}
	key, err := master.DeriveKey(uint32(*account), wallet.ChangeExternal, 0)
	if err != nil {
		fatal("derive key: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	if *walletName != "" {
		password, err := readNewPassword()
		if err != nil {
			fatal("%v", err)
		}
		ks, err := wallet.NewKeystore(cfg.WalletDir())
		if err != nil {
			fatal("open keystore: %v", err)
		}
		if err := ks.Create(*walletName, seed, password, wallet.DefaultParams()); err != nil {
			fatal("create wallet: %v", err)
		}
		entry := wallet.KeyEntry{Account: uint32(*account), Index: 0, PubKey: key.PublicKeyHex(), Label: "Default"}
		if err := ks.AddKey(*walletName, entry); err != nil {
			fatal("record key: %v", err)
		}
		fmt.Printf("Wallet created: %s\n", *walletName)
	}
	fmt.Printf("Public key [%d/0]: %s\n", *account, key.PublicKeyHex())
}

func cmdDerive(cfg *config.Config, args []string) {
	fs := newFlagSet("derive")
	walletName := fs.String("wallet", "", "Wallet name")
	account := fs.Uint("account", 0, "BIP-44 account")
	label := fs.String("label", "", "Label stored with the key")
	if pos := parseArgs(fs, args); len(pos) != 0 || *walletName == "" {
		fatal("Usage: klingnet-ledger derive --wallet <name> [--account n] [--label s]")
	}

	ks, err := wallet.NewKeystore(cfg.WalletDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	next, err := ks.NextIndex(*walletName, uint32(*account))
	if err != nil {
		fatal("%v", err)
	}
	master, err := masterKey(cfg, *walletName)
	if err != nil {
		fatal("%v", err)
	}
	key, err := master.DeriveKey(uint32(*account), wallet.ChangeExternal, next)
	if err != nil {
		fatal("derive key: %v", err)
	}
	entry := wallet.KeyEntry{Account: uint32(*account), Index: next, PubKey: key.PublicKeyHex(), Label: *label}
	if err := ks.AddKey(*walletName, entry); err != nil {
		fatal("record key: %v", err)
	}
	fmt.Printf("Public key [%d/%d]: %s\n", *account, next, key.PublicKeyHex())
}

func cmdSign(cfg *config.Config, args []string) {
	fs := newFlagSet("sign")
	walletName := fs.String("wallet", "", "Sign with an encrypted wallet instead of a mnemonic")
	account := fs.Uint("account", 0, "BIP-44 account")
	index := fs.Int("index", -1, "Sign every input with this key index (default: look up owners in the pool)")
	gap := fs.Uint("gap", defaultGap, "Key indices scanned per input when looking up owners")
	pos := parseArgs(fs, args)
	if len(pos) != 1 {
		fatal("Usage: klingnet-ledger sign [--wallet <name>] [--account n] [--index n] <unsigned.json>")
	}

	t, err := readTx(pos[0])
	if err != nil {
		fatal("%v", err)
	}

	var pool *utxo.Pool
	if *index < 0 {
		l, err := openLedger(cfg)
		if err != nil {
			fatal("%v", err)
		}
		pool, _, err = l.load()
		l.Close()
		if err != nil {
			fatal("%v", err)
		}
	}

	master, err := masterKey(cfg, *walletName)
	if errors.Is(err, wallet.ErrInvalidMnemonic) {
		fatal("invalid mnemonic (check %s or the words entered)", mnemonicEnv)
	}
	if err != nil {
		fatal("%v", err)
	}

	if err := signTx(t, master, pool, uint32(*account), *index, uint32(*gap)); err != nil {
		fatal("%v", err)
	}
	if err := printSigned(os.Stdout, t); err != nil {
		fatal("%v", err)
	}
}

func printSigned(w io.Writer, t *tx.Transaction) error {
	if err := writeJSON(w, t); err != nil {
		return err
	}
	_, err := fmt.Fprintf(os.Stderr, "txid: %s\n", t.Hash())
	return err
}
