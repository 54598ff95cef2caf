package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// UTXO-aware validation errors.
var (
	ErrNilTx             = errors.New("transaction is nil")
	ErrInputNotFound     = errors.New("input UTXO not found")
	ErrInvalidSig        = errors.New("invalid signature")
	ErrDuplicateInput    = errors.New("duplicate input")
	ErrInputOverflow     = errors.New("input values overflow")
	ErrNegativeOutput    = errors.New("output value is negative")
	ErrOutputOverflow    = errors.New("output values overflow")
	ErrInsufficientInput = errors.New("outputs exceed inputs")
)

// UTXOProvider provides read-only access to the UTXO set for validation.
type UTXOProvider interface {
	GetUTXO(outpoint types.Outpoint) (Output, error)
	HasUTXO(outpoint types.Outpoint) bool
}

// ValidateWithUTXOs checks the transaction against the UTXO set.
//
// Inputs are scanned in order and the first violation is returned: the
// referenced UTXO must exist, its owner's key must verify the signature
// over SigHash(i), and no UTXO may be claimed twice. Outputs must be
// non-negative and may not sum to more than the inputs. The difference
// is returned as the fee. The provider is never modified.
func (tx *Transaction) ValidateWithUTXOs(provider UTXOProvider, verifier crypto.Verifier) (int64, error) {
	if tx == nil {
		return 0, ErrNilTx
	}

	claimed := make(map[types.Outpoint]struct{}, len(tx.Inputs))
	var totalInput int64
	for i, in := range tx.Inputs {
		if !provider.HasUTXO(in.PrevOut) {
			return 0, fmt.Errorf("input %d (%s): %w", i, in.PrevOut, ErrInputNotFound)
		}
		prev, err := provider.GetUTXO(in.PrevOut)
		if err != nil {
			return 0, fmt.Errorf("input %d (%s): %w", i, in.PrevOut, err)
		}

		msg := tx.SigHash(i)
		if !verifier.Verify(prev.PubKey, msg[:], in.Signature) {
			return 0, fmt.Errorf("input %d: %w", i, ErrInvalidSig)
		}

		if _, dup := claimed[in.PrevOut]; dup {
			return 0, fmt.Errorf("input %d (%s): %w", i, in.PrevOut, ErrDuplicateInput)
		}
		claimed[in.PrevOut] = struct{}{}

		next, ok := addValue(totalInput, prev.Value)
		if !ok {
			return 0, fmt.Errorf("input %d: %w", i, ErrInputOverflow)
		}
		totalInput = next
	}

	var totalOutput int64
	for i, out := range tx.Outputs {
		if out.Value < 0 {
			return 0, fmt.Errorf("output %d: %w: %d", i, ErrNegativeOutput, out.Value)
		}
		next, ok := addValue(totalOutput, out.Value)
		if !ok {
			return 0, fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		totalOutput = next
	}

	if totalOutput > totalInput {
		return 0, fmt.Errorf("%w: inputs=%d outputs=%d", ErrInsufficientInput, totalInput, totalOutput)
	}
	return totalInput - totalOutput, nil
}

// IsValid reports whether tx passes ValidateWithUTXOs.
func IsValid(provider UTXOProvider, verifier crypto.Verifier, tx *Transaction) bool {
	_, err := tx.ValidateWithUTXOs(provider, verifier)
	return err == nil
}
