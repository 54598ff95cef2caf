// Package tx defines transaction types and validation against a UTXO set.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Transaction represents a proposed ledger transaction.
type Transaction struct {
	Inputs  []Input  `json:"inputs"`
	Outputs []Output `json:"outputs"`
}

// Input references a UTXO being spent.
type Input struct {
	PrevOut   types.Outpoint `json:"prevout"`
	Signature []byte         `json:"signature"`
}

// inputJSON is the JSON representation of Input with a hex-encoded signature.
type inputJSON struct {
	PrevOut   types.Outpoint `json:"prevout"`
	Signature *string        `json:"signature"`
}

// MarshalJSON encodes the input with a hex-encoded signature.
func (in Input) MarshalJSON() ([]byte, error) {
	j := inputJSON{PrevOut: in.PrevOut}
	if in.Signature != nil {
		s := hex.EncodeToString(in.Signature)
		j.Signature = &s
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes an input with a hex-encoded signature.
func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	in.PrevOut = j.PrevOut
	in.Signature = nil
	if j.Signature != nil {
		b, err := hex.DecodeString(*j.Signature)
		if err != nil {
			return fmt.Errorf("signature: %w", err)
		}
		in.Signature = b
	}
	return nil
}

// Output defines a new UTXO: an amount in base units and the compressed
// public key of the owner allowed to spend it.
type Output struct {
	Value  int64  `json:"value"`
	PubKey []byte `json:"pubkey"`
}

type outputJSON struct {
	Value  int64  `json:"value"`
	PubKey string `json:"pubkey"`
}

// MarshalJSON encodes the output with a hex-encoded public key.
func (out Output) MarshalJSON() ([]byte, error) {
	return json.Marshal(outputJSON{Value: out.Value, PubKey: hex.EncodeToString(out.PubKey)})
}

// UnmarshalJSON decodes an output with a hex-encoded public key.
func (out *Output) UnmarshalJSON(data []byte) error {
	var j outputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	b, err := hex.DecodeString(j.PubKey)
	if err != nil {
		return fmt.Errorf("pubkey: %w", err)
	}
	out.Value = j.Value
	out.PubKey = b
	return nil
}

// Clone returns a deep copy of the output.
func (out Output) Clone() Output {
	c := Output{Value: out.Value}
	if out.PubKey != nil {
		c.PubKey = make([]byte, len(out.PubKey))
		copy(c.PubKey, out.PubKey)
	}
	return c
}

// Hash computes the transaction ID: BLAKE3 of the serialized inputs
// (outpoints only) and outputs. Signatures are excluded, so signing a
// transaction does not change its ID.
func (tx *Transaction) Hash() types.Hash {
	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = appendOutpoint(buf, in.PrevOut)
	}
	buf = tx.appendOutputs(buf)
	return crypto.Hash(buf)
}

// SigningBytes returns the content the signature of input index must
// authorize. Format: prevout(36) | output_count(4) | [value(8) + pubkey_len(4) + pubkey]...
// Returns nil if index is out of range.
func (tx *Transaction) SigningBytes(index int) []byte {
	if index < 0 || index >= len(tx.Inputs) {
		return nil
	}
	buf := appendOutpoint(nil, tx.Inputs[index].PrevOut)
	return tx.appendOutputs(buf)
}

// SigHash returns the 32-byte message signed for input index.
func (tx *Transaction) SigHash(index int) types.Hash {
	return crypto.Hash(tx.SigningBytes(index))
}

func appendOutpoint(buf []byte, op types.Outpoint) []byte {
	buf = append(buf, op.TxID[:]...)
	return binary.LittleEndian.AppendUint32(buf, op.Index)
}

func (tx *Transaction) appendOutputs(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(out.Value))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(out.PubKey)))
		buf = append(buf, out.PubKey...)
	}
	return buf
}

// Outpoint returns the identifier of output index of this transaction.
func (tx *Transaction) Outpoint(index int) types.Outpoint {
	return types.NewOutpoint(tx.Hash(), uint32(index))
}

// TotalOutputValue returns the sum of all output values.
// Returns an error if the sum overflows int64.
func (tx *Transaction) TotalOutputValue() (int64, error) {
	var total int64
	for i, out := range tx.Outputs {
		next, ok := addValue(total, out.Value)
		if !ok {
			return 0, fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		total = next
	}
	return total, nil
}

// addValue returns a+b and false if the sum overflows int64.
func addValue(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}
