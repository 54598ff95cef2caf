package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Klingon-tech/klingnet-ledger/config"
	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// ── Flag helpers ────────────────────────────────────────────────────────

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// interleave parses args allowing flags after positional arguments and
// returns the positionals in order.
func interleave(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

func parseArgs(fs *flag.FlagSet, args []string) []string {
	pos, err := interleave(fs, args)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(2)
	}
	return pos
}

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

// ── Transaction files ───────────────────────────────────────────────────

// readTxs reads a JSON array of transactions. null entries are kept so
// the handler reports them.
func readTxs(path string) ([]*tx.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var txs []*tx.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return txs, nil
}

// readTx reads a single JSON transaction.
func readTx(path string) (*tx.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var t tx.Transaction
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &t, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// buildTx assembles an unsigned transaction from "txid:index" inputs and
// "pubkey=amount" outputs.
func buildTx(ins, outs []string) (*tx.Transaction, error) {
	b := tx.NewBuilder()
	for _, in := range ins {
		op, err := types.ParseOutpoint(in)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", in, err)
		}
		b.AddInput(op)
	}
	for _, out := range outs {
		pubHex, amount, ok := strings.Cut(out, "=")
		if !ok {
			return nil, fmt.Errorf("output %q: expected pubkey=amount", out)
		}
		pub, err := hex.DecodeString(pubHex)
		if err != nil {
			return nil, fmt.Errorf("output %q: pubkey: %w", out, err)
		}
		if err := crypto.ValidatePublicKey(pub); err != nil {
			return nil, fmt.Errorf("output %q: %w", out, err)
		}
		value, err := parseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", out, err)
		}
		b.AddOutput(value, pub)
	}
	return b.Build(), nil
}

func cmdBuild(args []string) {
	fs := newFlagSet("build")
	var ins, outs stringList
	fs.Var(&ins, "in", "Input outpoint txid:index (repeatable)")
	fs.Var(&outs, "out", "Output pubkey=amount in coins (repeatable)")
	if pos := parseArgs(fs, args); len(pos) != 0 || len(outs) == 0 {
		fatal("Usage: klingnet-ledger build --in <txid:index>... --out <pubkey=amount>...")
	}

	t, err := buildTx(ins, outs)
	if err != nil {
		fatal("%v", err)
	}
	if err := writeJSON(os.Stdout, t); err != nil {
		fatal("%v", err)
	}
}

// ── Amounts ─────────────────────────────────────────────────────────────

// formatAmount converts base units to a decimal coin string.
func formatAmount(units int64) string {
	sign := ""
	u := uint64(units)
	if units < 0 {
		sign = "-"
		u = uint64(-(units + 1)) + 1
	}
	return fmt.Sprintf("%s%d.%012d", sign, u/config.Coin, u%config.Coin)
}

// parseAmount converts a non-negative decimal coin string to base units.
func parseAmount(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount")
	}

	whole, fracStr, hasFrac := strings.Cut(s, ".")
	if !isDigits(whole) {
		return 0, fmt.Errorf("invalid whole part %q", whole)
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid whole part: %w", err)
	}

	var frac int64
	if hasFrac {
		if !isDigits(fracStr) || len(fracStr) > config.Decimals {
			return 0, fmt.Errorf("fractional part must have 1 to %d digits", config.Decimals)
		}
		fracStr += strings.Repeat("0", config.Decimals-len(fracStr))
		frac, err = strconv.ParseInt(fracStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid fractional part: %w", err)
		}
	}

	if w > math.MaxInt64/config.Coin {
		return 0, fmt.Errorf("amount too large")
	}
	result := w * config.Coin
	if result > math.MaxInt64-frac {
		return 0, fmt.Errorf("amount too large")
	}
	return result + frac, nil
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
