package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks catalog ingestion. It implements the sync observer
// contract of the usecase layer.
type WorkerMetrics struct {
	registry *prometheus.Registry

	syncedMovies  prometheus.Counter
	skippedFacts  prometheus.Counter
	indexFailures prometheus.Counter
	syncRunsTotal *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": service}

	syncedMovies := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "cinerec",
		Subsystem:   "sync",
		Name:        "movies_total",
		Help:        "Total movies stored during catalog sync.",
		ConstLabels: labels,
	})
	skippedFacts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "cinerec",
		Subsystem:   "sync",
		Name:        "skipped_facts_total",
		Help:        "Total movie facts skipped as malformed.",
		ConstLabels: labels,
	})
	indexFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "cinerec",
		Subsystem:   "sync",
		Name:        "index_failures_total",
		Help:        "Total movies left unindexed in the vector store.",
		ConstLabels: labels,
	})
	syncRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinerec",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total sync runs by outcome.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(syncedMovies, skippedFacts, indexFailures, syncRunsTotal)

	return &WorkerMetrics{
		registry:      registry,
		syncedMovies:  syncedMovies,
		skippedFacts:  skippedFacts,
		indexFailures: indexFailures,
		syncRunsTotal: syncRunsTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) RecordSyncedMovie()  { m.syncedMovies.Inc() }
func (m *WorkerMetrics) RecordSkippedFact()  { m.skippedFacts.Inc() }
func (m *WorkerMetrics) RecordIndexFailure() { m.indexFailures.Inc() }

func (m *WorkerMetrics) RecordSyncRun(service, status string) {
	if status == "" {
		status = "unknown"
	}
	m.syncRunsTotal.WithLabelValues(service, status).Inc()
}
