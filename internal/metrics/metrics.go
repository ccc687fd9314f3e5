// Package metrics exposes Prometheus counters and histograms for the
// onset detection pipeline, grounded on the style of the corpus's
// monitoring/prometheus.go files (krisnaepras-backend-screener-crypto
// and sawpanic/cryptorun both register a small fixed set of counters
// and histograms at package init and expose them via
// promhttp.Handler()).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CandidatesTotal counts candidate events emitted, labeled by symbol.
	CandidatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "onsetdetect",
		Name:      "candidates_total",
		Help:      "Total candidate events emitted.",
	}, []string{"symbol"})

	// ConfirmedTotal counts confirmed onset events, labeled by symbol.
	ConfirmedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "onsetdetect",
		Name:      "confirmed_total",
		Help:      "Total confirmed onset events emitted.",
	}, []string{"symbol"})

	// RejectedRefractoryTotal counts candidates suppressed by an active
	// refractory window, labeled by symbol.
	RejectedRefractoryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "onsetdetect",
		Name:      "rejected_refractory_total",
		Help:      "Total candidates rejected due to an active refractory window.",
	}, []string{"symbol"})

	// ConfirmLatencySeconds measures the wall-clock span between a
	// candidate's ts and its confirmation ts, in seconds.
	ConfirmLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "onsetdetect",
		Name:      "confirm_latency_seconds",
		Help:      "Time between a candidate's ts and its confirmation ts.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"symbol"})

	// TicksProcessedTotal counts raw ticks fed into the pipeline,
	// labeled by symbol.
	TicksProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "onsetdetect",
		Name:      "ticks_processed_total",
		Help:      "Total ticks processed.",
	}, []string{"symbol"})

	// BadTicksTotal counts ticks rejected by the Feature Engine's
	// validation, labeled by symbol.
	BadTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "onsetdetect",
		Name:      "bad_ticks_total",
		Help:      "Total ticks rejected as malformed input.",
	}, []string{"symbol"})
)
