// Package metrics exposes Prometheus collectors for the ingestion
// pipeline and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestRunsTotal            *prometheus.CounterVec
	sourceCandidatesTotal      *prometheus.CounterVec
	sourceFailuresTotal        *prometheus.CounterVec
	mergedEventsGauge          prometheus.Gauge
	ingestDurationSeconds      prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ingestRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shutdown_ingest_runs_total",
				Help: "Total ingestion runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		sourceCandidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shutdown_source_candidates_total",
				Help: "Total raw candidates produced, labeled by source.",
			},
			[]string{"source"},
		)

		sourceFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shutdown_source_failures_total",
				Help: "Total source fetch failures, labeled by source.",
			},
			[]string{"source"},
		)

		mergedEventsGauge = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "shutdown_merged_events",
				Help: "Event count produced by the most recent merge.",
			},
		)

		ingestDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shutdown_ingest_duration_seconds",
				Help:    "Histogram of full ingestion run durations.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records the outcome and duration of one ingestion run.
func ObserveRun(outcome string, merged int, duration time.Duration) {
	ingestRunsTotal.WithLabelValues(outcome).Inc()
	mergedEventsGauge.Set(float64(merged))
	ingestDurationSeconds.Observe(duration.Seconds())
}

// ObserveSource records one source's contribution to a run.
func ObserveSource(source string, count int, err error) {
	if err != nil {
		sourceFailuresTotal.WithLabelValues(source).Inc()
		return
	}
	if count > 0 {
		sourceCandidatesTotal.WithLabelValues(source).Add(float64(count))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
