package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Outpoint identifies one spendable output by the hash of the transaction
// that produced it and the output's position in that transaction.
// It is comparable and used directly as a map key.
type Outpoint struct {
	TxID  Hash   `json:"txid"`
	Index uint32 `json:"index"`
}

// NewOutpoint returns the outpoint for output index of transaction txID.
func NewOutpoint(txID Hash, index uint32) Outpoint {
	return Outpoint{TxID: txID, Index: index}
}

// IsZero returns true if the outpoint has a zero TxID and zero index.
func (o Outpoint) IsZero() bool {
	return o.TxID.IsZero() && o.Index == 0
}

// Less orders outpoints by TxID, then by Index.
func (o Outpoint) Less(other Outpoint) bool {
	if o.TxID != other.TxID {
		return o.TxID.Less(other.TxID)
	}
	return o.Index < other.Index
}

// String returns "txid:index" in hex.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Index)
}

// ParseOutpoint parses the "txid:index" form produced by String.
func ParseOutpoint(s string) (Outpoint, error) {
	txid, idx, ok := strings.Cut(s, ":")
	if !ok {
		return Outpoint{}, fmt.Errorf("outpoint %q: missing ':'", s)
	}
	h, err := HexToHash(txid)
	if err != nil {
		return Outpoint{}, fmt.Errorf("outpoint %q: %w", s, err)
	}
	n, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return Outpoint{}, fmt.Errorf("outpoint %q: invalid index: %w", s, err)
	}
	return Outpoint{TxID: h, Index: uint32(n)}, nil
}
