package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	eventTotal *prometheus.CounterVec
	eventLag   *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dash",
			Subsystem: "worker",
			Name:      "capture_events_total",
			Help:      "Total consumed capture lifecycle events by event and mode.",
		},
		[]string{"service", "event", "mode"},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dash",
			Subsystem: "worker",
			Name:      "event_lag_seconds",
			Help:      "Delay between event emission and worker consumption.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service"},
	)

	registry.MustRegister(eventTotal, eventLag)

	return &WorkerMetrics{
		registry:   registry,
		eventTotal: eventTotal,
		eventLag:   eventLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) RecordCaptureEvent(service, event, mode string, emittedAt time.Time) {
	if event == "" {
		event = "unknown"
	}
	if mode == "" {
		mode = "unknown"
	}
	m.eventTotal.WithLabelValues(service, event, mode).Inc()
	if !emittedAt.IsZero() {
		if lag := time.Since(emittedAt); lag > 0 {
			m.eventLag.WithLabelValues(service).Observe(lag.Seconds())
		}
	}
}
