package handler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors a Handler updates once per epoch.
type Metrics struct {
	epochs   prometheus.Counter
	accepted prometheus.Counter
	rejected *prometheus.CounterVec
	fees     prometheus.Counter
	poolSize prometheus.Gauge
	duration prometheus.Histogram
}

// NewMetrics creates the handler collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		epochs: f.NewCounter(prometheus.CounterOpts{
			Namespace: "klingnet_ledger",
			Subsystem: "handler",
			Name:      "epochs_total",
			Help:      "Number of epochs processed",
		}),
		accepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "klingnet_ledger",
			Subsystem: "handler",
			Name:      "accepted_txs_total",
			Help:      "Number of transactions accepted",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "klingnet_ledger",
			Subsystem: "handler",
			Name:      "rejected_txs_total",
			Help:      "Number of transactions rejected, by reason",
		}, []string{"reason"}),
		fees: f.NewCounter(prometheus.CounterOpts{
			Namespace: "klingnet_ledger",
			Subsystem: "handler",
			Name:      "fees_total",
			Help:      "Sum of implicit fees of accepted transactions, in base units",
		}),
		poolSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "klingnet_ledger",
			Subsystem: "handler",
			Name:      "pool_size",
			Help:      "Number of unspent outputs after the last epoch",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "klingnet_ledger",
			Subsystem: "handler",
			Name:      "epoch_duration_seconds",
			Help:      "Time spent processing one epoch",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
	}
}

func (m *Metrics) observe(results []Result, poolSize int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.epochs.Inc()
	for _, r := range results {
		if r.Accepted {
			m.accepted.Inc()
			m.fees.Add(float64(r.Fee))
			continue
		}
		m.rejected.WithLabelValues(r.Reason.String()).Inc()
	}
	m.poolSize.Set(float64(poolSize))
	m.duration.Observe(elapsed.Seconds())
}
