package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOperations counts key-value store operations by backend, operation and result.
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cliqd_store_operations_total",
		Help: "Total number of key-value store operations",
	}, []string{"backend", "operation", "result"})

	// StoreLatency records key-value store latency by backend and operation.
	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cliqd_store_operation_seconds",
		Help:    "Key-value store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	// HubRevision is the latest revision published on the change hub.
	HubRevision = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cliqd_hub_revision",
		Help: "Latest revision published on the change hub",
	})

	// HubDroppedSnapshots counts snapshots replaced before a lagging subscriber read them.
	HubDroppedSnapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cliqd_hub_dropped_snapshots_total",
		Help: "Snapshots superseded before a subscriber consumed them",
	}, []string{"topic"})
)

// StoreMetrics records operation outcomes for one backend.
type StoreMetrics struct {
	backend string
}

// NewStoreMetrics returns StoreMetrics labelled with backend.
func NewStoreMetrics(backend string) *StoreMetrics {
	return &StoreMetrics{backend: backend}
}

// Operation results recorded by StoreMetrics.
const (
	ResultOK    = "ok"
	ResultMiss  = "miss"
	ResultError = "error"
)

// TrackOperation returns a function that records latency and result when called (e.g. defer).
func (m *StoreMetrics) TrackOperation(operation string) func(result string) {
	start := time.Now()
	return func(result string) {
		StoreLatency.WithLabelValues(m.backend, operation).Observe(time.Since(start).Seconds())
		StoreOperations.WithLabelValues(m.backend, operation, result).Inc()
	}
}
