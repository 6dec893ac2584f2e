package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "prodsearch"

// Search pipeline Prometheus metrics.
var (
	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search pipeline duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"status"},
	)

	SearchSourceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_source_duration_seconds",
			Help:      "Candidate source call duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"source"},
	)

	SearchSourceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_source_total",
			Help:      "Candidate source calls by outcome (ok, error, timeout, skipped)",
		},
		[]string{"source", "outcome"},
	)

	SearchHydrationMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_hydration_misses_total",
			Help:      "Candidate IDs dropped because no product record exists",
		},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of ranked results returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)
)

// Ingestion Prometheus metrics.
var (
	IngestRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_rows_total",
			Help:      "Product feed rows processed by outcome (indexed, invalid, failed)",
		},
		[]string{"outcome"},
	)

	IngestBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_batch_duration_seconds",
			Help:      "Duration of one embed+write ingestion batch",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search and ingestion metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(SearchSourceDuration)
	prometheus.MustRegister(SearchSourceTotal)
	prometheus.MustRegister(SearchHydrationMissesTotal)
	prometheus.MustRegister(SearchResults)
	prometheus.MustRegister(IngestRowsTotal)
	prometheus.MustRegister(IngestBatchDuration)
	searchMetricsRegistered = true
}
