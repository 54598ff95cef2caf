package tx

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{tx: &Transaction{}}
}

// FromTransaction wraps an existing (typically unsigned) transaction.
func FromTransaction(t *Transaction) *Builder {
	return &Builder{tx: t}
}

// AddInput adds an input referencing a previous output.
func (b *Builder) AddInput(prevOut types.Outpoint) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, Input{PrevOut: prevOut})
	return b
}

// AddOutput adds an output paying value to pubKey.
func (b *Builder) AddOutput(value int64, pubKey []byte) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{Value: value, PubKey: pubKey})
	return b
}

// SignInput signs input index with key. Outputs must be final: the
// signature covers all of them.
func (b *Builder) SignInput(index int, key crypto.Signer) error {
	if index < 0 || index >= len(b.tx.Inputs) {
		return fmt.Errorf("sign input %d: index out of range (%d inputs)", index, len(b.tx.Inputs))
	}
	msg := b.tx.SigHash(index)
	sig, err := key.Sign(msg[:])
	if err != nil {
		return fmt.Errorf("sign input %d: %w", index, err)
	}
	b.tx.Inputs[index].Signature = sig
	return nil
}

// Sign signs every input with the same key (single-owner spending).
func (b *Builder) Sign(key crypto.Signer) error {
	for i := range b.tx.Inputs {
		if err := b.SignInput(i, key); err != nil {
			return err
		}
	}
	return nil
}

// Build returns the constructed transaction.
// Does NOT validate; call ValidateWithUTXOs separately.
func (b *Builder) Build() *Transaction {
	return b.tx
}
