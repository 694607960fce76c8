// Package queue provides the durable buffer between the ingestion worker and
// the batch consumer, built on a JetStream work-queue stream with a durable
// pull consumer.
//
// Delivery is at-least-once: messages stay in the stream until explicitly
// acknowledged, and an unacknowledged message reappears after the ack wait
// elapses. Redelivery stops after the configured delivery attempts.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/darko-mesaros/adventures-of-json/component"
	"github.com/darko-mesaros/adventures-of-json/errors"
	"github.com/darko-mesaros/adventures-of-json/message"
	"github.com/darko-mesaros/adventures-of-json/metric"
	"github.com/darko-mesaros/adventures-of-json/natsclient"
)

// Defaults mirroring the batching behavior of the original deployment.
const (
	DefaultStream   = "ADVENTURE_QUEUE"
	DefaultSubject  = "queue.adventure"
	DefaultConsumer = "adventure-drainer"

	DefaultMaxBatch   = 10
	DefaultMaxWait    = 60 * time.Second
	DefaultAckWait    = 30 * time.Second
	DefaultMaxDeliver = 3
	DefaultMaxMsgs    = 10_000
)

// Config holds queue configuration.
type Config struct {
	Stream   string `json:"stream"`
	Subject  string `json:"subject"`
	Consumer string `json:"consumer"`

	// MaxBatch caps how many messages a single drain returns.
	MaxBatch int `json:"max_batch"`

	// MaxWait bounds how long a drain waits for the first message.
	MaxWait time.Duration `json:"max_wait"`

	// AckWait is the visibility timeout: how long a delivered message may
	// stay unacknowledged before it is redelivered.
	AckWait time.Duration `json:"ack_wait"`

	// MaxDeliver caps delivery attempts per message.
	MaxDeliver int `json:"max_deliver"`

	// MaxMsgs caps the stream depth. New publishes fail once the cap is
	// reached (backpressure surfaces at the worker).
	MaxMsgs int64 `json:"max_msgs"`
}

// DefaultConfig returns the default queue configuration.
func DefaultConfig() Config {
	return Config{
		Stream:     DefaultStream,
		Subject:    DefaultSubject,
		Consumer:   DefaultConsumer,
		MaxBatch:   DefaultMaxBatch,
		MaxWait:    DefaultMaxWait,
		AckWait:    DefaultAckWait,
		MaxDeliver: DefaultMaxDeliver,
		MaxMsgs:    DefaultMaxMsgs,
	}
}

// Queue is the durable message queue component.
type Queue struct {
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger
	metrics    *metric.Metrics

	stream   jetstream.Stream
	consumer jetstream.Consumer

	started   atomic.Bool
	startTime time.Time
	errCount  atomic.Int64
	lastErr   atomic.Value // stores string
}

var _ component.LifecycleComponent = (*Queue)(nil)

// New creates a queue from its configuration and dependencies.
func New(cfg Config, deps component.Dependencies) *Queue {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultMaxBatch
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = DefaultAckWait
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = DefaultMaxDeliver
	}
	return &Queue{
		config:     cfg,
		natsClient: deps.NATSClient,
		logger:     deps.GetLoggerWithComponent("queue"),
		metrics:    deps.GetMetrics(),
	}
}

// Initialize validates the queue configuration.
func (q *Queue) Initialize() error {
	if q.config.Stream == "" || q.config.Subject == "" || q.config.Consumer == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Queue", "Initialize",
			"stream, subject and consumer are required")
	}
	if q.natsClient == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Queue", "Initialize", "nil NATS client")
	}
	return nil
}

// Start creates the work-queue stream and its durable pull consumer.
func (q *Queue) Start(ctx context.Context) error {
	if !q.started.CompareAndSwap(false, true) {
		return nil
	}

	stream, err := q.natsClient.CreateStream(ctx, jetstream.StreamConfig{
		Name:      q.config.Stream,
		Subjects:  []string{q.config.Subject},
		Retention: jetstream.WorkQueuePolicy,
		Discard:   jetstream.DiscardNew,
		MaxMsgs:   q.config.MaxMsgs,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		q.started.Store(false)
		return errors.Wrap(err, "Queue", "Start", "create stream")
	}
	q.stream = stream

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:    q.config.Consumer,
		AckPolicy:  jetstream.AckExplicitPolicy,
		AckWait:    q.config.AckWait,
		MaxDeliver: q.config.MaxDeliver,
	})
	if err != nil {
		q.started.Store(false)
		return errors.WrapTransient(err, "Queue", "Start", "create durable consumer")
	}
	q.consumer = consumer

	q.startTime = time.Now()
	q.logger.Info("Queue started",
		slog.String("stream", q.config.Stream),
		slog.String("subject", q.config.Subject),
		slog.Int("max_batch", q.config.MaxBatch))
	return nil
}

// Stop marks the queue stopped. The stream and consumer are durable and
// survive restarts.
func (q *Queue) Stop(_ time.Duration) error {
	q.started.Store(false)
	return nil
}

// Enqueue publishes a message to the stream and waits for the persistence
// acknowledgement. A full stream surfaces as ErrQueueFull.
func (q *Queue) Enqueue(ctx context.Context, msg message.QueueMessage) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}

	if err := q.natsClient.PublishToStream(ctx, q.config.Subject, data); err != nil {
		q.errCount.Add(1)
		q.lastErr.Store(err.Error())
		if strings.Contains(err.Error(), "maximum messages exceeded") {
			return errors.WrapTransient(errors.ErrQueueFull, "Queue", "Enqueue", msg.ID)
		}
		return errors.Wrap(err, "Queue", "Enqueue", fmt.Sprintf("publish message %s", msg.ID))
	}

	q.metrics.MessagesEnqueued.Inc()
	return nil
}

// DequeueBatch drains up to maxCount messages, waiting at most maxWait for
// the batch window to fill. It returns as soon as maxCount messages are
// buffered or the window elapses, whichever comes first. Payloads that fail
// to decode are terminated so they are never redelivered.
func (q *Queue) DequeueBatch(ctx context.Context, maxCount int, maxWait time.Duration) ([]Delivery, error) {
	if q.consumer == nil {
		return nil, errors.WrapFatal(errors.ErrNotStarted, "Queue", "DequeueBatch", "consumer not created")
	}
	if maxCount <= 0 {
		maxCount = q.config.MaxBatch
	}
	if maxWait <= 0 {
		maxWait = q.config.MaxWait
	}

	batch, err := q.consumer.Fetch(maxCount, jetstream.FetchMaxWait(maxWait))
	if err != nil {
		q.errCount.Add(1)
		q.lastErr.Store(err.Error())
		return nil, errors.WrapTransient(err, "Queue", "DequeueBatch", "fetch batch")
	}

	deliveries := make([]Delivery, 0, maxCount)
	for raw := range batch.Messages() {
		select {
		case <-ctx.Done():
			// Unprocessed deliveries redeliver after the ack wait.
			return deliveries, errors.WrapTransient(ctx.Err(), "Queue", "DequeueBatch", "context cancelled")
		default:
		}

		msg, err := message.DecodeQueueMessage(raw.Data())
		if err != nil {
			q.logger.Warn("Terminating undecodable queue message",
				slog.String("error", err.Error()))
			if termErr := raw.Term(); termErr != nil {
				q.logger.Error("Failed to terminate message", slog.String("error", termErr.Error()))
			}
			continue
		}

		q.metrics.MessagesDequeued.Inc()
		deliveries = append(deliveries, Delivery{Message: msg, raw: raw})
	}

	if err := batch.Error(); err != nil {
		q.errCount.Add(1)
		q.lastErr.Store(err.Error())
		return deliveries, errors.WrapTransient(err, "Queue", "DequeueBatch", "batch error")
	}

	if len(deliveries) > 0 {
		q.metrics.BatchesDrained.Inc()
		q.metrics.BatchSize.Observe(float64(len(deliveries)))
	}
	return deliveries, nil
}

// Meta returns component metadata.
func (q *Queue) Meta() component.Metadata {
	return component.Metadata{
		Name:        "queue",
		Type:        "queue",
		Description: fmt.Sprintf("Durable work queue on stream %s", q.config.Stream),
		Version:     "1.0.0",
	}
}

// Health returns the current health status.
func (q *Queue) Health() component.HealthStatus {
	lastErr, _ := q.lastErr.Load().(string)
	return component.HealthStatus{
		Healthy:    q.started.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(q.errCount.Load()),
		LastError:  lastErr,
		Uptime:     time.Since(q.startTime),
	}
}
