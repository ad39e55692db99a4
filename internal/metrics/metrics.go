package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
	OutcomePartial  = "partial"
)

var (
	Transactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lns_transactions_total",
		Help: "Transactions submitted to the name service contract, by method and outcome",
	}, []string{"kind", "outcome"})

	Flows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lns_flows_total",
		Help: "User initiated flows (connect, switch, mint, update) by outcome",
	}, []string{"flow", "outcome"})

	RegistryRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lns_registry_refresh_duration_seconds",
		Help:    "Time taken to read the full name registry from the contract",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	})

	RegistryRefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lns_registry_refresh_failures_total",
		Help: "Registry refreshes that failed and kept the stale snapshot",
	})

	RegistryNames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lns_registry_names",
		Help: "Number of names in the last published registry snapshot",
	})
)
