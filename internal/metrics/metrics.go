// Package metrics exposes Prometheus instrumentation for the retrieval
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors the retrieval pipeline reports into.
type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal   *prometheus.CounterVec
	SearchErrors    prometheus.Counter
	SearchDuration  prometheus.Histogram
	ResultsReturned prometheus.Histogram
	SessionsActive  prometheus.GaugeFunc
	EmbeddingErrors prometheus.Counter
	ChunksIngested  prometheus.Counter
}

// New registers the pipeline collectors on a fresh registry. sessionCount
// reports the live session total when scraped; it may be nil.
func New(sessionCount func() int) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SearchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rackguard",
			Name:      "searches_total",
			Help:      "Searches executed, by strategy.",
		}, []string{"strategy"}),
		SearchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rackguard",
			Name:      "search_errors_total",
			Help:      "Searches that returned an error to the caller.",
		}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rackguard",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		ResultsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rackguard",
			Name:      "search_results_returned",
			Help:      "Result count per search after rerank.",
			Buckets:   []float64{0, 1, 5, 10, 15, 25, 50},
		}),
		EmbeddingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rackguard",
			Name:      "embedding_errors_total",
			Help:      "Failed embedding requests.",
		}),
		ChunksIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rackguard",
			Name:      "chunks_ingested_total",
			Help:      "Chunks written during ingestion.",
		}),
	}
	registry.MustRegister(m.SearchesTotal, m.SearchErrors, m.SearchDuration,
		m.ResultsReturned, m.EmbeddingErrors, m.ChunksIngested)

	if sessionCount != nil {
		m.SessionsActive = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "rackguard",
			Name:      "sessions_active",
			Help:      "Conversation sessions currently tracked.",
		}, func() float64 { return float64(sessionCount()) })
		registry.MustRegister(m.SessionsActive)
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
