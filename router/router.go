// Package router filters storage-change notifications against a routing rule
// and forwards the matches to the ingestion worker.
//
// The router is stateless: events are evaluated independently, matches are
// dispatched exactly once per delivery, and non-matching events are dropped
// without side effects. Event delivery up to the router is at-most-once, so
// a router that is down while an object is stored never sees that event.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/darko-mesaros/adventures-of-json/component"
	"github.com/darko-mesaros/adventures-of-json/errors"
	"github.com/darko-mesaros/adventures-of-json/message"
	"github.com/darko-mesaros/adventures-of-json/metric"
	"github.com/darko-mesaros/adventures-of-json/natsclient"
)

// Dispatcher receives events that matched the routing rule. The ingestion
// worker is the production implementation.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev message.RawEvent) error
}

// Config holds router configuration.
type Config struct {
	// Subject is the NATS subject storage-change notifications arrive on.
	Subject string `json:"subject"`

	// Rule is the routing predicate applied to every event.
	Rule Rule `json:"rule"`
}

// DefaultConfig returns a router configured for the default object store
// events subject and the hero document rule.
func DefaultConfig() Config {
	return Config{
		Subject: "storage.objectstore.events",
		Rule:    DefaultRule(),
	}
}

// Router subscribes to the events subject and dispatches matching events.
type Router struct {
	config     Config
	natsClient *natsclient.Client
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *metric.Metrics

	started   atomic.Bool
	startTime time.Time
	errCount  atomic.Int64
	lastErr   atomic.Value // stores string
}

var _ component.LifecycleComponent = (*Router)(nil)

// New creates a router from its configuration and dependencies.
func New(cfg Config, dispatcher Dispatcher, deps component.Dependencies) *Router {
	return &Router{
		config:     cfg,
		natsClient: deps.NATSClient,
		dispatcher: dispatcher,
		logger:     deps.GetLoggerWithComponent("router"),
		metrics:    deps.GetMetrics(),
	}
}

// Initialize validates the router configuration.
func (r *Router) Initialize() error {
	if r.config.Subject == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Router", "Initialize", "empty subject")
	}
	if r.dispatcher == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Router", "Initialize", "nil dispatcher")
	}
	if r.natsClient == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Router", "Initialize", "nil NATS client")
	}
	return nil
}

// Start subscribes to the events subject.
func (r *Router) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return nil
	}

	if err := r.natsClient.Subscribe(ctx, r.config.Subject, r.handleEvent); err != nil {
		r.started.Store(false)
		return errors.WrapTransient(err, "Router", "Start", "subscribe to events")
	}

	r.startTime = time.Now()
	r.logger.Info("Router started",
		slog.String("subject", r.config.Subject),
		slog.String("bucket", r.config.Rule.Bucket),
		slog.String("key_prefix", r.config.Rule.KeyPrefix))
	return nil
}

// Stop marks the router stopped. The subscription itself is drained when the
// NATS client closes.
func (r *Router) Stop(_ time.Duration) error {
	r.started.Store(false)
	return nil
}

// handleEvent evaluates a single notification against the rule.
func (r *Router) handleEvent(ctx context.Context, data []byte) {
	var ev message.RawEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		r.metrics.EventsDropped.WithLabelValues("malformed").Inc()
		r.logger.Warn("Dropping malformed event", slog.String("error", err.Error()))
		return
	}

	r.metrics.EventsReceived.WithLabelValues(ev.Source).Inc()

	ok, mismatch := r.config.Rule.Matches(ev)
	if !ok {
		r.metrics.EventsDropped.WithLabelValues(mismatch).Inc()
		r.logger.Debug("Event did not match rule",
			slog.String("mismatch", mismatch),
			slog.String("bucket", ev.Bucket),
			slog.String("key", ev.Key))
		return
	}

	if err := r.dispatcher.Dispatch(ctx, ev); err != nil {
		r.errCount.Add(1)
		r.lastErr.Store(err.Error())
		r.logger.Error("Dispatch failed",
			slog.String("key", ev.Key),
			slog.String("error", err.Error()))
		return
	}

	r.metrics.EventsDispatch.Inc()
}

// Meta returns component metadata.
func (r *Router) Meta() component.Metadata {
	return component.Metadata{
		Name:        "router",
		Type:        "router",
		Description: fmt.Sprintf("Event router matching %s on %s", r.config.Rule.KeyPrefix, r.config.Subject),
		Version:     "1.0.0",
	}
}

// Health returns the current health status.
func (r *Router) Health() component.HealthStatus {
	lastErr, _ := r.lastErr.Load().(string)
	return component.HealthStatus{
		Healthy:    r.started.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(r.errCount.Load()),
		LastError:  lastErr,
		Uptime:     time.Since(r.startTime),
	}
}
