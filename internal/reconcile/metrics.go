package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	discrepancyGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_reconcile_discrepancies",
		Help: "Discrepancies found by the last full ledger reconciliation.",
	})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_reconcile_duration_seconds",
		Help:    "Duration of ledger reconciliation runs.",
		Buckets: prometheus.DefBuckets,
	})
)
