package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for the frame server.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	generationsTotal   prometheus.Counter
	generationFailures *prometheus.CounterVec
	generationDuration prometheus.Histogram
	framesServedTotal  prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyring_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyring_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	generationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyring_generations_total",
		Help: "Total number of frame sequences generated and stored",
	})
	generationFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keyring_generation_failures_total",
		Help: "Failed generations by error kind",
	}, []string{"kind"})
	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "keyring_generation_duration_seconds",
		Help:    "Time to generate a full frame sequence",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	framesServedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyring_frames_served_total",
		Help: "Total number of frame images served",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		generationsTotal,
		generationFailures,
		generationDuration,
		framesServedTotal,
	)

	return &Metrics{
		registry:           registry,
		requestsTotal:      requestsTotal,
		errorsTotal:        errorsTotal,
		generationsTotal:   generationsTotal,
		generationFailures: generationFailures,
		generationDuration: generationDuration,
		framesServedTotal:  framesServedTotal,
	}
}

func (m *Metrics) ObserveGeneration(d time.Duration) {
	m.generationsTotal.Inc()
	m.generationDuration.Observe(d.Seconds())
}

func (m *Metrics) IncGenerationFailure(kind string) {
	m.generationFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncFramesServed() {
	m.framesServedTotal.Inc()
}

// Handler returns an http.Handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestMiddleware records request count and error count (status >= 400).
func RequestMiddleware(m *Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrap := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrap, r)
			m.requestsTotal.Inc()
			if wrap.status >= 400 {
				m.errorsTotal.Inc()
			}
		})
	}
}
