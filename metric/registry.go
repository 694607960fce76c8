package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry bundles the pipeline metrics with their Prometheus registry
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
}

// NewRegistry creates a registry with all pipeline metrics plus the Go
// runtime and process collectors registered.
func NewRegistry() *Registry {
	promRegistry := prometheus.NewRegistry()
	metrics := NewMetrics()

	promRegistry.MustRegister(metrics.collectors()...)
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		prometheusRegistry: promRegistry,
		Metrics:            metrics,
	}
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}
