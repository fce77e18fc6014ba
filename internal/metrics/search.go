package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Ranking and search Prometheus metrics.
var (
	RankDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "patsim",
			Name:      "rank_duration_seconds",
			Help:      "Time spent scoring and selecting candidates",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	RankCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "patsim",
			Name:      "rank_candidates",
			Help:      "Number of candidates handed to the ranker per search",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 9),
		},
	)

	RankDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "patsim",
			Name:      "rank_dropped_total",
			Help:      "Candidates dropped for an invalid fingerprint",
		},
		[]string{"reason"},
	)

	SearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "patsim",
			Name:      "search_total",
			Help:      "Similarity searches by outcome",
		},
		[]string{"status"}, // ok, empty_predicate, no_candidates, error
	)

	FingerprintCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "patsim",
			Name:      "fingerprint_cache_total",
			Help:      "Reference fingerprint cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	ExpanderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "patsim",
			Name:      "expander_requests_total",
			Help:      "Classification-code expansion requests",
		},
		[]string{"status"}, // ok, error
	)

	ExpanderRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "patsim",
			Name:      "expander_request_duration_seconds",
			Help:      "Classification-code expansion request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

var registerOnce sync.Once

// RegisterSearchMetrics registers the ranking and search metrics. Safe to call more than once.
func RegisterSearchMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RankDuration,
			RankCandidates,
			RankDroppedTotal,
			SearchTotal,
			FingerprintCacheTotal,
			ExpanderRequestsTotal,
			ExpanderRequestDuration,
		)
	})
}
