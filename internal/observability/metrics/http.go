package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics collects HTTP traffic metrics plus pipeline metrics for
// the recommendation engine. It implements the usecase observer contracts.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	recRequestsTotal *prometheus.CounterVec
	recEmptyTotal    *prometheus.CounterVec
	recResults       *prometheus.HistogramVec
	recDuration      *prometheus.HistogramVec
	poolSourceTotal  *prometheus.CounterVec
	poolSize         *prometheus.HistogramVec
	cascadeTierTotal *prometheus.CounterVec
	likesTotal       *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinerec",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cinerec",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cinerec",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	recRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinerec",
			Subsystem: "rec",
			Name:      "requests_total",
			Help:      "Total completed recommendation requests.",
		},
		[]string{"service"},
	)
	recEmptyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinerec",
			Subsystem: "rec",
			Name:      "empty_total",
			Help:      "Total recommendation requests that returned no matches.",
		},
		[]string{"service"},
	)
	recResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cinerec",
			Subsystem: "rec",
			Name:      "results",
			Help:      "Distribution of returned recommendations per request.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 150},
		},
		[]string{"service"},
	)
	recDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cinerec",
			Subsystem: "rec",
			Name:      "duration_seconds",
			Help:      "Recommendation pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	poolSourceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinerec",
			Subsystem: "rec",
			Name:      "pool_source_total",
			Help:      "Candidate pool builds by source path.",
		},
		[]string{"service", "source"},
	)
	poolSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cinerec",
			Subsystem: "rec",
			Name:      "pool_size",
			Help:      "Distribution of candidate pool sizes.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
		[]string{"service"},
	)
	cascadeTierTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinerec",
			Subsystem: "rec",
			Name:      "cascade_tier_total",
			Help:      "Fallback cascade outcomes by winning tier.",
		},
		[]string{"service", "tier"},
	)
	likesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cinerec",
			Subsystem: "likes",
			Name:      "updates_total",
			Help:      "Total like/unlike updates by action.",
		},
		[]string{"service", "action"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		recRequestsTotal,
		recEmptyTotal,
		recResults,
		recDuration,
		poolSourceTotal,
		poolSize,
		cascadeTierTotal,
		likesTotal,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		recRequestsTotal: recRequestsTotal,
		recEmptyTotal:    recEmptyTotal,
		recResults:       recResults,
		recDuration:      recDuration,
		poolSourceTotal:  poolSourceTotal,
		poolSize:         poolSize,
		cascadeTierTotal: cascadeTierTotal,
		likesTotal:       likesTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// PipelineRecorder binds the service label so the usecase layer records
// without knowing it.
type PipelineRecorder struct {
	metrics *HTTPServerMetrics
	service string
}

func (m *HTTPServerMetrics) Pipeline(service string) *PipelineRecorder {
	return &PipelineRecorder{metrics: m, service: service}
}

func (r *PipelineRecorder) RecordPoolSource(source string, size int) {
	if source == "" {
		source = "unknown"
	}
	r.metrics.poolSourceTotal.WithLabelValues(r.service, source).Inc()
	if source != "none" {
		r.metrics.poolSize.WithLabelValues(r.service).Observe(float64(size))
	}
}

func (r *PipelineRecorder) RecordCascadeTier(tier string) {
	if tier == "" {
		tier = "unknown"
	}
	r.metrics.cascadeTierTotal.WithLabelValues(r.service, tier).Inc()
}

func (m *HTTPServerMetrics) RecordRecommendation(service string, resultCount int, duration time.Duration) {
	m.recRequestsTotal.WithLabelValues(service).Inc()
	m.recResults.WithLabelValues(service).Observe(float64(resultCount))
	m.recDuration.WithLabelValues(service).Observe(duration.Seconds())
	if resultCount == 0 {
		m.recEmptyTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordLikeUpdate(service, action string) {
	m.likesTotal.WithLabelValues(service, action).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
