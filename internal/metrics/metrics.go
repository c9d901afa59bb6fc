// Package metrics defines the Prometheus collectors shared by the pool, the
// unit of work, the rate limiter and the HTTP layer. All collectors are
// registered on the default registry at init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsIssued tracks connections currently leased to units of work.
	ConnectionsIssued = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "collectflow_pool_connections_issued",
		Help: "Number of connections leased out per pool",
	}, []string{"pool"})

	// ConnectionsIdle tracks connections parked in the idle set.
	ConnectionsIdle = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "collectflow_pool_connections_idle",
		Help: "Number of idle connections per pool",
	}, []string{"pool"})

	// ConnectionsMax tracks the configured bound per pool.
	ConnectionsMax = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "collectflow_pool_connections_max",
		Help: "Configured maximum connections per pool",
	}, []string{"pool"})

	// AcquireWaiting tracks callers blocked in a bounded acquire wait.
	AcquireWaiting = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "collectflow_pool_acquire_waiting",
		Help: "Number of callers waiting for a connection per pool",
	}, []string{"pool"})

	// AcquireTotal counts acquire outcomes (reused, opened, exhausted, ...).
	AcquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectflow_pool_acquire_total",
		Help: "Total acquire attempts by outcome",
	}, []string{"pool", "outcome"})

	// AcquireWaitDuration tracks time spent waiting when acquire_timeout is set.
	AcquireWaitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collectflow_pool_acquire_wait_seconds",
		Help:    "Time spent waiting for a connection",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"pool"})

	// ConnectionErrors counts connection errors by type.
	ConnectionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectflow_pool_connection_errors_total",
		Help: "Total connection errors",
	}, []string{"pool", "error_type"})

	// TransactionsTotal counts unit-of-work outcomes.
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectflow_uow_transactions_total",
		Help: "Total units of work by outcome",
	}, []string{"outcome"})

	// TransactionDuration tracks unit-of-work duration, acquire included.
	TransactionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collectflow_uow_duration_seconds",
		Help:    "Unit of work duration",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	// HTTPRequests counts served requests.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectflow_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPDuration tracks request latency.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collectflow_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// RateLimitDecisions counts limiter decisions per rule.
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectflow_ratelimit_decisions_total",
		Help: "Rate limiter decisions",
	}, []string{"rule", "decision", "backend"})

	// RedisOperations counts Redis operations.
	RedisOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collectflow_redis_operations_total",
		Help: "Total Redis operations",
	}, []string{"operation", "status"})
)
