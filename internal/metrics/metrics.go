// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)
	IndexedPlaces = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "placedir_indexed_places",
			Help: "Number of places held by each in-memory index",
		},
		[]string{"index"},
	)
	AggregateCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placedir_aggregate_cache_lookups_total",
			Help: "Aggregation cache lookups by result",
		},
		[]string{"result"},
	)
	SlugRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "placedir_slug_retries_total",
			Help: "Slug reassignments after a unique index collision",
		},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			RateLimited,
			IndexedPlaces,
			AggregateCacheLookups,
			SlugRetries,
		)
	})
}
