package component

import (
	"log/slog"

	"github.com/darko-mesaros/adventures-of-json/metric"
	"github.com/darko-mesaros/adventures-of-json/natsclient"
)

// Dependencies provides all external dependencies needed by components.
// Components receive this bundle at construction rather than reaching for
// ambient globals.
type Dependencies struct {
	NATSClient *natsclient.Client // NATS client for messaging (can be nil in tests)
	Metrics    *metric.Metrics    // Pipeline metrics (can be nil, defaults to unregistered set)
	Logger     *slog.Logger       // Structured logger (can be nil, defaults to slog.Default())
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}

// GetMetrics returns the configured metrics or an unregistered fallback set
// so components never have to nil-check individual collectors.
func (d *Dependencies) GetMetrics() *metric.Metrics {
	if d.Metrics != nil {
		return d.Metrics
	}
	return metric.NewMetrics()
}
