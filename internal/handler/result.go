package handler

import (
	"errors"

	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Reason classifies why a transaction was rejected.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonNilTx
	ReasonMissingInput
	ReasonBadSignature
	ReasonDoubleClaim
	ReasonNegativeOutput
	ReasonValueOverflow
	ReasonInsufficientInput
	ReasonUnknown
)

var reasonNames = [...]string{
	ReasonNone:              "none",
	ReasonNilTx:             "nil transaction",
	ReasonMissingInput:      "missing input",
	ReasonBadSignature:      "bad signature",
	ReasonDoubleClaim:       "double claim",
	ReasonNegativeOutput:    "negative output",
	ReasonValueOverflow:     "value overflow",
	ReasonInsufficientInput: "insufficient input",
	ReasonUnknown:           "unknown",
}

// String returns a short human-readable name.
func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return reasonNames[ReasonUnknown]
}

// ReasonOf maps a validation error to its Reason.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, tx.ErrNilTx):
		return ReasonNilTx
	case errors.Is(err, tx.ErrInputNotFound):
		return ReasonMissingInput
	case errors.Is(err, tx.ErrInvalidSig):
		return ReasonBadSignature
	case errors.Is(err, tx.ErrDuplicateInput):
		return ReasonDoubleClaim
	case errors.Is(err, tx.ErrNegativeOutput):
		return ReasonNegativeOutput
	case errors.Is(err, tx.ErrInputOverflow), errors.Is(err, tx.ErrOutputOverflow):
		return ReasonValueOverflow
	case errors.Is(err, tx.ErrInsufficientInput):
		return ReasonInsufficientInput
	default:
		return ReasonUnknown
	}
}

// Result is the outcome for one proposed transaction of an epoch.
type Result struct {
	Tx       *tx.Transaction
	TxID     types.Hash
	Accepted bool
	Fee      int64
	Err      error
	Reason   Reason
}
