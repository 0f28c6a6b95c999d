package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	httpErrorsTotal     *prometheus.CounterVec
	mediaIngestSeconds  prometheus.Histogram
	mediaIngestedTotal  *prometheus.CounterVec
	mediaRejectedTotal  *prometheus.CounterVec
	mutationEventsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tide_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tide_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tide_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		mediaIngestSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tide_media_ingest_seconds",
			Help:    "End to end latency of media ingestion runs.",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		})

		mediaIngestedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tide_media_ingested_total",
			Help: "Total number of media objects that produced a derivative.",
		}, []string{"kind"})

		mediaRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tide_media_rejected_total",
			Help: "Total number of media objects rejected during ingestion.",
		}, []string{"reason"})

		mutationEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tide_mutation_events_total",
			Help: "Total number of mutation events published to downstream sinks.",
		}, []string{"entity", "action"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			mediaIngestSeconds,
			mediaIngestedTotal,
			mediaRejectedTotal,
			mutationEventsTotal,
		)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for served requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// MediaIngestLatency exposes the ingestion latency histogram.
func MediaIngestLatency() prometheus.Histogram {
	RegisterMetrics()
	return mediaIngestSeconds
}

// MediaIngested exposes the counter for successful ingestions.
func MediaIngested() *prometheus.CounterVec {
	RegisterMetrics()
	return mediaIngestedTotal
}

// MediaRejected exposes the counter for rejected ingestions.
func MediaRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return mediaRejectedTotal
}

// MutationEvents exposes the counter for published mutation events.
func MutationEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return mutationEventsTotal
}
