// Package ingest fetches objects named by routed events, annotates them and
// enqueues them for batch delivery.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/darko-mesaros/adventures-of-json/component"
	"github.com/darko-mesaros/adventures-of-json/errors"
	"github.com/darko-mesaros/adventures-of-json/message"
	"github.com/darko-mesaros/adventures-of-json/metric"
)

// ObjectGetter fetches an object's content by key. The object store backend
// is the production implementation.
type ObjectGetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Enqueuer accepts queue messages for durable delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg message.QueueMessage) error
}

// Config holds worker configuration.
type Config struct {
	// Timeout bounds a single dispatch (fetch, annotate, enqueue).
	Timeout time.Duration `json:"timeout"`

	// EmbedPayload controls whether the annotated document is embedded in
	// the queue message. When false the message carries only the object
	// reference and the consumer re-fetches and annotates at drain time.
	EmbedPayload bool `json:"embed_payload"`
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		EmbedPayload: true,
	}
}

// Worker turns a routed event into a durable queue message. It implements
// router.Dispatcher.
type Worker struct {
	config   Config
	objects  ObjectGetter
	enqueuer Enqueuer
	logger   *slog.Logger
	metrics  *metric.Metrics
}

// NewWorker creates an ingestion worker.
func NewWorker(cfg Config, objects ObjectGetter, enqueuer Enqueuer, deps component.Dependencies) *Worker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Worker{
		config:   cfg,
		objects:  objects,
		enqueuer: enqueuer,
		logger:   deps.GetLoggerWithComponent("ingest-worker"),
		metrics:  deps.GetMetrics(),
	}
}

// Dispatch processes one routed event: fetch the object, annotate a copy and
// enqueue it. A fetch failure is a FetchError, an enqueue failure a
// PublishError; both propagate to the router with the event unprocessed.
func (w *Worker) Dispatch(ctx context.Context, ev message.RawEvent) error {
	start := time.Now()
	defer func() {
		w.metrics.ProcessingDuration.WithLabelValues("worker", "dispatch").Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	data, err := w.objects.Get(ctx, ev.Key)
	if err != nil {
		return errors.Wrap(err, "Worker", "Dispatch", fmt.Sprintf("fetch object %s", ev.Key))
	}

	if !json.Valid(data) {
		return errors.WrapInvalid(errors.ErrParsingFailed, "Worker", "Dispatch",
			fmt.Sprintf("object %s is not valid JSON", ev.Key))
	}

	msg := message.QueueMessage{
		ID:         uuid.NewString(),
		Bucket:     ev.Bucket,
		Key:        ev.Key,
		EnqueuedAt: time.Now().UTC(),
	}

	if w.config.EmbedPayload {
		annotated, err := Annotate(data, time.Now())
		if err != nil {
			return errors.Wrap(err, "Worker", "Dispatch", "annotate document")
		}
		msg.Payload = annotated
	}

	if err := w.enqueuer.Enqueue(ctx, msg); err != nil {
		return errors.Wrap(err, "Worker", "Dispatch", fmt.Sprintf("enqueue message %s", msg.ID))
	}

	w.logger.Debug("Enqueued document",
		slog.String("id", msg.ID),
		slog.String("key", ev.Key))
	return nil
}
