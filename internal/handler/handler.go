// Package handler accepts epochs of proposed transactions against a UTXO pool.
//
// Every epoch runs in two phases. First the outputs of all proposed
// transactions are registered in the pool, so a transaction may spend an
// output created by another transaction of the same epoch. Then each
// transaction is validated in submission order: an accepted one consumes
// its inputs, a rejected one has its registered outputs removed again.
// Two transactions spending the same output are resolved first-come-wins.
package handler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Handler holds the current UTXO pool and processes epochs against it.
// All methods are serialised; an epoch is never observed half-applied.
type Handler struct {
	mu       sync.Mutex
	pool     *utxo.Pool
	verifier crypto.Verifier
	logger   zerolog.Logger
	metrics  *Metrics
	epoch    uint64
}

// Option configures a Handler.
type Option func(*Handler)

// WithVerifier replaces the default Schnorr signature verifier.
func WithVerifier(v crypto.Verifier) Option {
	return func(h *Handler) { h.verifier = v }
}

// WithLogger replaces the default handler logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithMetrics records every epoch in m.
func WithMetrics(m *Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithEpoch sets the number of epochs already processed, for a handler
// resumed from a stored pool.
func WithEpoch(n uint64) Option {
	return func(h *Handler) { h.epoch = n }
}

// New creates a handler over a private copy of pool. A nil pool starts empty.
func New(pool *utxo.Pool, opts ...Option) *Handler {
	h := &Handler{
		verifier: crypto.SchnorrVerifier{},
		logger:   klog.Handler,
	}
	if pool != nil {
		h.pool = pool.Clone()
	} else {
		h.pool = utxo.NewPool()
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// IsValidTx reports whether t is admissible against the current pool.
func (h *Handler) IsValidTx(t *tx.Transaction) bool {
	return h.CheckTx(t) == nil
}

// CheckTx validates t against the current pool and returns the first
// violation found, or nil.
func (h *Handler) CheckTx(t *tx.Transaction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := t.ValidateWithUTXOs(h.pool, h.verifier)
	return err
}

// HandleTxs processes one epoch and returns the accepted transactions in
// their original relative order. The held pool is updated in place.
func (h *Handler) HandleTxs(txs []*tx.Transaction) []*tx.Transaction {
	results := h.HandleTxsWithResults(txs)
	accepted := make([]*tx.Transaction, 0, len(results))
	for _, r := range results {
		if r.Accepted {
			accepted = append(accepted, r.Tx)
		}
	}
	return accepted
}

// HandleTxsWithResults processes one epoch like HandleTxs and reports the
// outcome of every proposed transaction, index-aligned with txs.
func (h *Handler) HandleTxsWithResults(txs []*tx.Transaction) []Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	h.epoch++
	results := make([]Result, len(txs))

	// Register every proposed output before any validation. Outputs already
	// in the pool are left alone; inserted records what this epoch added and
	// is all a rejection may take back out. pending counts the not yet
	// validated transactions per ID: a batch may carry the same transaction
	// twice, and only the last copy to be rejected (with none accepted) may
	// roll back the shared outputs.
	pending := make(map[types.Hash]int, len(txs))
	inserted := make(map[types.Hash][]types.Outpoint)
	for i, t := range txs {
		results[i].Tx = t
		if t == nil {
			continue
		}
		id := t.Hash()
		results[i].TxID = id
		pending[id]++
		for j, out := range t.Outputs {
			op := types.NewOutpoint(id, uint32(j))
			if h.pool.Contains(op) {
				continue
			}
			h.pool.Add(op, out.Clone())
			inserted[id] = append(inserted[id], op)
		}
	}
	acceptedIDs := make(map[types.Hash]struct{})

	var accepted int
	for i, t := range txs {
		r := &results[i]
		if t != nil {
			pending[r.TxID]--
		}
		fee, err := t.ValidateWithUTXOs(h.pool, h.verifier)
		if err == nil {
			for _, in := range t.Inputs {
				h.pool.Remove(in.PrevOut)
			}
			acceptedIDs[r.TxID] = struct{}{}
			r.Accepted = true
			r.Fee = fee
			accepted++
			continue
		}

		r.Err = err
		r.Reason = ReasonOf(err)
		if _, kept := acceptedIDs[r.TxID]; t != nil && !kept && pending[r.TxID] == 0 {
			for _, op := range inserted[r.TxID] {
				h.pool.Remove(op)
			}
			delete(inserted, r.TxID)
		}
		h.logger.Debug().
			Uint64("epoch", h.epoch).
			Int("position", i).
			Str("txid", r.TxID.String()).
			Stringer("reason", r.Reason).
			Err(err).
			Msg("transaction rejected")
	}

	elapsed := time.Since(start)
	h.metrics.observe(results, h.pool.Len(), elapsed)
	h.logger.Info().
		Uint64("epoch", h.epoch).
		Int("proposed", len(txs)).
		Int("accepted", accepted).
		Int("rejected", len(txs)-accepted).
		Int("pool_size", h.pool.Len()).
		Dur("elapsed", elapsed).
		Msg("epoch processed")

	return results
}

// Pool returns a copy of the current pool.
func (h *Handler) Pool() *utxo.Pool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.Clone()
}

// Epoch returns the number of epochs processed so far.
func (h *Handler) Epoch() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.epoch
}
