package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VerificationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payment_engine",
		Name:      "verification_outcomes_total",
		Help:      "Verification attempts by chain and outcome",
	}, []string{"chain", "outcome"})

	CreditsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payment_engine",
		Name:      "credits_applied_total",
		Help:      "Deposits credited to user balances, by chain and currency",
	}, []string{"chain", "currency"})

	BlocksScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payment_engine",
		Name:      "scanner_blocks_scanned_total",
		Help:      "Blocks walked by the passive deposit scanner",
	}, []string{"chain"})

	TransfersDiscovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payment_engine",
		Name:      "scanner_transfers_discovered_total",
		Help:      "Inbound transfers the scanner found without a prior claim",
	}, []string{"chain"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "payment_engine",
		Name:      "job_duration_seconds",
		Help:      "Background job duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
)
