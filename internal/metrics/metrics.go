// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "books_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "books_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	TokensIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "books_tokens_issued_total",
			Help: "Total number of access tokens issued",
		},
		[]string{"flow"},
	)

	TokenRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "books_token_rejections_total",
			Help: "Total number of rejected bearer tokens",
		},
		[]string{"reason"},
	)

	LoginFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "books_login_failures_total",
			Help: "Total number of failed login attempts",
		},
	)

	BookOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "books_operations_total",
			Help: "Total number of book operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	BookCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "books_cache_requests_total",
			Help: "Book cache lookups by result",
		},
		[]string{"result"},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "books_active_streams",
			Help: "Number of open update streams",
		},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "books_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	BookEventsPersistedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "books_events_persisted_total",
			Help: "Book events consumed by the audit worker",
		},
		[]string{"outcome"},
	)
)
