package main

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-ledger/config"
	"github.com/Klingon-tech/klingnet-ledger/internal/handler"
	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// ledger is the persistent pool of one network.
type ledger struct {
	store  *utxo.Store
	closer io.Closer
	logger zerolog.Logger
	maxTxs int

	metrics *handler.Metrics
}

// openLedger opens the shared database and scopes it to cfg's network.
func openLedger(cfg *config.Config) (*ledger, error) {
	db, err := storage.Open(cfg.DB.Backend, cfg.DBDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.DBDir(), err)
	}
	l := newLedger(storage.NewPrefixDB(db, cfg.DBPrefix()), cfg.Epoch.MaxTxs)
	l.closer = db
	l.logger.Debug().Str("path", cfg.DBDir()).Str("backend", cfg.DB.Backend).Str("network", string(cfg.Network)).Msg("Database opened")
	return l, nil
}

func newLedger(db storage.DB, maxTxs int) *ledger {
	return &ledger{
		store:  utxo.NewStore(db),
		closer: db,
		logger: klog.CLI,
		maxTxs: maxTxs,
	}
}

func (l *ledger) Close() error {
	return l.closer.Close()
}

// initialize seeds an empty ledger from genesis. An initialized ledger is
// only overwritten when force is set.
func (l *ledger) initialize(g *config.Genesis, force bool) (*utxo.Pool, error) {
	ok, err := l.store.Initialized()
	if err != nil {
		return nil, err
	}
	if ok && !force {
		return nil, fmt.Errorf("ledger already initialized (use --force to reset)")
	}

	pool, err := g.Pool()
	if err != nil {
		return nil, fmt.Errorf("genesis pool: %w", err)
	}
	if err := l.store.Save(pool, 0); err != nil {
		return nil, err
	}
	l.logger.Info().
		Str("chain_id", g.ChainID).
		Int("utxos", pool.Len()).
		Int64("value", pool.TotalValue()).
		Msg("Ledger initialized from genesis")
	return pool, nil
}

// load returns the stored pool and the number of epochs applied to it.
func (l *ledger) load() (*utxo.Pool, uint64, error) {
	ok, err := l.store.Initialized()
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, fmt.Errorf("ledger not initialized (run init <genesis.json> first)")
	}
	pool, err := l.store.Load()
	if err != nil {
		return nil, 0, err
	}
	epoch, err := l.store.Epoch()
	if err != nil {
		return nil, 0, err
	}
	return pool, epoch, nil
}

// epochReport is the outcome of one processed epoch.
type epochReport struct {
	Epoch   uint64
	Results []handler.Result
	Pool    *utxo.Pool
}

// processEpoch applies txs to the stored pool and persists the result.
// Nothing is written when the epoch is refused as a whole.
func (l *ledger) processEpoch(txs []*tx.Transaction) (*epochReport, error) {
	if l.maxTxs > 0 && len(txs) > l.maxTxs {
		return nil, fmt.Errorf("epoch has %d transactions, limit is %d", len(txs), l.maxTxs)
	}
	pool, epoch, err := l.load()
	if err != nil {
		return nil, err
	}

	h := handler.New(pool, handler.WithEpoch(epoch), handler.WithMetrics(l.metrics))
	results := h.HandleTxsWithResults(txs)
	next := h.Pool()

	done := klog.Benchmark("save pool")
	err = l.store.Save(next, h.Epoch())
	done()
	if err != nil {
		return nil, fmt.Errorf("save pool: %w", err)
	}
	return &epochReport{Epoch: h.Epoch(), Results: results, Pool: next}, nil
}

// ── Commands ────────────────────────────────────────────────────────────

func cmdInit(cfg *config.Config, args []string) {
	fs := newFlagSet("init")
	force := fs.Bool("force", false, "Overwrite an initialized ledger")
	pos := parseArgs(fs, args)
	if len(pos) != 1 {
		fatal("Usage: klingnet-ledger init [--force] <genesis.json>")
	}

	g, err := config.LoadGenesis(pos[0])
	if err != nil {
		fatal("%v", err)
	}
	l, err := openLedger(cfg)
	if err != nil {
		fatal("%v", err)
	}
	defer l.Close()

	pool, err := l.initialize(g, *force)
	if err != nil {
		fatal("%v", err)
	}
	printPool(os.Stdout, pool, 0, false)
}

func cmdEpoch(cfg *config.Config, args []string) {
	fs := newFlagSet("epoch")
	metricsFile := fs.String("metrics-file", "", "Write epoch metrics in Prometheus text format to this file")
	pos := parseArgs(fs, args)
	if len(pos) != 1 {
		fatal("Usage: klingnet-ledger epoch [--metrics-file path] <txs.json>")
	}

	txs, err := readTxs(pos[0])
	if err != nil {
		fatal("%v", err)
	}
	l, err := openLedger(cfg)
	if err != nil {
		fatal("%v", err)
	}
	defer l.Close()

	var reg *prometheus.Registry
	if *metricsFile != "" {
		reg = prometheus.NewRegistry()
		l.metrics = handler.NewMetrics(reg)
	}

	report, err := l.processEpoch(txs)
	if err != nil {
		fatal("%v", err)
	}
	printReport(os.Stdout, report)

	if reg != nil {
		if err := prometheus.WriteToTextfile(*metricsFile, reg); err != nil {
			fatal("write metrics: %v", err)
		}
	}
}

func cmdPool(cfg *config.Config, args []string) {
	fs := newFlagSet("pool")
	summary := fs.Bool("summary", false, "Only print totals and the commitment")
	if pos := parseArgs(fs, args); len(pos) != 0 {
		fatal("Usage: klingnet-ledger pool [--summary]")
	}

	l, err := openLedger(cfg)
	if err != nil {
		fatal("%v", err)
	}
	defer l.Close()

	pool, epoch, err := l.load()
	if err != nil {
		fatal("%v", err)
	}
	printPool(os.Stdout, pool, epoch, !*summary)
}

// ── Output ──────────────────────────────────────────────────────────────

func printReport(w io.Writer, r *epochReport) {
	accepted := 0
	for _, res := range r.Results {
		if res.Accepted {
			accepted++
		}
	}
	fmt.Fprintf(w, "Epoch %d: %d proposed, %d accepted, %d rejected\n",
		r.Epoch, len(r.Results), accepted, len(r.Results)-accepted)

	for i, res := range r.Results {
		id := "-"
		if res.Tx != nil {
			id = res.TxID.String()
		}
		if res.Accepted {
			fmt.Fprintf(w, "  [%d] accepted %s fee=%s\n", i, id, formatAmount(res.Fee))
		} else {
			fmt.Fprintf(w, "  [%d] rejected %s: %s (%v)\n", i, id, res.Reason, res.Err)
		}
	}
	printPool(w, r.Pool, r.Epoch, false)
}

func printPool(w io.Writer, pool *utxo.Pool, epoch uint64, list bool) {
	if list {
		pool.ForEach(func(op types.Outpoint, out tx.Output) error {
			fmt.Fprintf(w, "%s %x %s\n", op, out.PubKey, formatAmount(out.Value))
			return nil
		})
	}
	fmt.Fprintf(w, "Pool: %d utxos, %s total, epoch %d\n", pool.Len(), formatAmount(pool.TotalValue()), epoch)
	fmt.Fprintf(w, "Commitment: %s\n", utxo.Commitment(pool))
}
