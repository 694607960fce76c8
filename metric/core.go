// Package metric provides Prometheus metrics for the ingestion pipeline and
// the HTTP handler that exposes them.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "adventures"

// Metrics contains all pipeline-level metrics
type Metrics struct {
	// Event routing
	EventsReceived  *prometheus.CounterVec // by source
	EventsDispatch  prometheus.Counter
	EventsDropped   *prometheus.CounterVec // by mismatch field
	ObjectsStored   prometheus.Counter
	ObjectsFetched  *prometheus.CounterVec // by status

	// Queue
	MessagesEnqueued prometheus.Counter
	MessagesDequeued prometheus.Counter
	BatchesDrained   prometheus.Counter
	BatchSize        prometheus.Histogram

	// Gateway and store
	GatewayRequests    *prometheus.CounterVec // by status code
	GatewayDuration    prometheus.Histogram
	StoreWrites        *prometheus.CounterVec // by result
	ConsumerAcks       prometheus.Counter
	ConsumerRedeliver  prometheus.Counter
	ProcessingDuration *prometheus.HistogramVec // by component, operation
}

// NewMetrics creates a new Metrics instance with all pipeline metrics.
// The collectors are created unregistered; use NewRegistry to get a
// registry with everything wired in.
func NewMetrics() *Metrics {
	return &Metrics{
		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "received_total",
				Help:      "Total number of storage-change notifications received",
			},
			[]string{"source"},
		),

		EventsDispatch: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "dispatched_total",
				Help:      "Total number of events that matched the routing rule",
			},
		),

		EventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "dropped_total",
				Help:      "Total number of events dropped by the routing rule",
			},
			[]string{"mismatch"},
		),

		ObjectsStored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "objectstore",
				Name:      "stored_total",
				Help:      "Total number of objects stored",
			},
		),

		ObjectsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "objectstore",
				Name:      "fetched_total",
				Help:      "Total number of object fetches",
			},
			[]string{"status"},
		),

		MessagesEnqueued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "enqueued_total",
				Help:      "Total number of messages enqueued",
			},
		),

		MessagesDequeued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "dequeued_total",
				Help:      "Total number of messages dequeued",
			},
		),

		BatchesDrained: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "batches_total",
				Help:      "Total number of batches drained by the consumer",
			},
		),

		BatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "batch_size",
				Help:      "Number of messages per drained batch",
				Buckets:   []float64{1, 2, 5, 10},
			},
		),

		GatewayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total number of gateway requests by HTTP status",
			},
			[]string{"status"},
		),

		GatewayDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Gateway request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		StoreWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "docstore",
				Name:      "writes_total",
				Help:      "Total number of document store writes by result",
			},
			[]string{"result"},
		),

		ConsumerAcks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "consumer",
				Name:      "acks_total",
				Help:      "Total number of messages acknowledged after gateway success",
			},
		),

		ConsumerRedeliver: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "consumer",
				Name:      "redeliveries_total",
				Help:      "Total number of messages released for redelivery",
			},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Message processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component", "operation"},
		),
	}
}

// collectors returns every collector for bulk registration
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.EventsReceived,
		m.EventsDispatch,
		m.EventsDropped,
		m.ObjectsStored,
		m.ObjectsFetched,
		m.MessagesEnqueued,
		m.MessagesDequeued,
		m.BatchesDrained,
		m.BatchSize,
		m.GatewayRequests,
		m.GatewayDuration,
		m.StoreWrites,
		m.ConsumerAcks,
		m.ConsumerRedeliver,
		m.ProcessingDuration,
	}
}
