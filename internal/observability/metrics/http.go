package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	capturesTotal       *prometheus.CounterVec
	captureDecisions    *prometheus.CounterVec
	entitiesCreated     *prometheus.CounterVec
	extractionDegraded  *prometheus.CounterVec
	extractionDuration  *prometheus.HistogramVec
	tokenIssuedTotal    *prometheus.CounterVec
	tokenRejectedTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dash",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dash",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dash",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	capturesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dash",
			Subsystem: "capture",
			Name:      "submitted_total",
			Help:      "Total submitted captures by extracted mode.",
		},
		[]string{"service", "mode"},
	)
	captureDecisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dash",
			Subsystem: "capture",
			Name:      "decisions_total",
			Help:      "Total capture decisions by outcome.",
		},
		[]string{"service", "decision"},
	)
	entitiesCreated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dash",
			Subsystem: "capture",
			Name:      "entities_created_total",
			Help:      "Total entities materialized from accepted captures.",
		},
		[]string{"service", "entity"},
	)
	extractionDegraded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dash",
			Subsystem: "extraction",
			Name:      "degraded_total",
			Help:      "Total extractions that fell back to the uncertain stub.",
		},
		[]string{"service"},
	)
	extractionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dash",
			Subsystem: "extraction",
			Name:      "duration_seconds",
			Help:      "Intent extraction duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	tokenIssuedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dash",
			Subsystem: "voice",
			Name:      "tokens_issued_total",
			Help:      "Total transcription tokens issued.",
		},
		[]string{"service"},
	)
	tokenRejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dash",
			Subsystem: "voice",
			Name:      "tokens_rejected_total",
			Help:      "Total token requests rejected because the provider is unconfigured.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		capturesTotal,
		captureDecisions,
		entitiesCreated,
		extractionDegraded,
		extractionDuration,
		tokenIssuedTotal,
		tokenRejectedTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		capturesTotal:      capturesTotal,
		captureDecisions:   captureDecisions,
		entitiesCreated:    entitiesCreated,
		extractionDegraded: extractionDegraded,
		extractionDuration: extractionDuration,
		tokenIssuedTotal:   tokenIssuedTotal,
		tokenRejectedTotal: tokenRejectedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
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
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/captures/"):
		return "/v1/captures/{capture_id}"
	case strings.HasPrefix(path, "/v1/tasks/"):
		return "/v1/tasks/{task_id}"
	case strings.HasPrefix(path, "/v1/goals/"):
		return "/v1/goals/{goal_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordCaptureSubmitted(service, mode string) {
	if mode == "" {
		mode = "unknown"
	}
	m.capturesTotal.WithLabelValues(service, mode).Inc()
}

func (m *HTTPServerMetrics) RecordCaptureDecision(service, decision string) {
	m.captureDecisions.WithLabelValues(service, decision).Inc()
}

func (m *HTTPServerMetrics) RecordEntitiesCreated(service, entity string, count int) {
	if count <= 0 {
		return
	}
	m.entitiesCreated.WithLabelValues(service, entity).Add(float64(count))
}

func (m *HTTPServerMetrics) RecordExtraction(service string, degraded bool, duration time.Duration) {
	m.extractionDuration.WithLabelValues(service).Observe(duration.Seconds())
	if degraded {
		m.extractionDegraded.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordTokenIssued(service string) {
	m.tokenIssuedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordTokenRejected(service string) {
	m.tokenRejectedTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
