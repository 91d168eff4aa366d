// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filecart_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filecart_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "route"},
	)

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filecart_store_operations_total",
			Help: "Document store operations by collection, operation and result",
		},
		[]string{"collection", "op", "result"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filecart_store_operation_duration_seconds",
			Help:    "Document store operation latency",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"collection", "op"},
	)

	StoreLockWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filecart_store_lock_wait_seconds",
			Help:    "Time spent waiting for a collection lock",
			Buckets: []float64{.0001, .001, .01, .1, .5, 1, 5},
		},
		[]string{"collection"},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "filecart_circuit_breaker_state",
			Help: "Circuit breaker state of a store backend",
		},
		[]string{"name"},
	)
)

// ObserveStoreOp records one store operation and its outcome.
func ObserveStoreOp(collection, op string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOperations.WithLabelValues(collection, op, result).Inc()
	StoreOperationDuration.WithLabelValues(collection, op).Observe(time.Since(started).Seconds())
}
