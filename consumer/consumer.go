// Package consumer drains document batches from the durable queue and posts
// each document to the write gateway, acknowledging only on success.
package consumer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/darko-mesaros/adventures-of-json/component"
	"github.com/darko-mesaros/adventures-of-json/errors"
	"github.com/darko-mesaros/adventures-of-json/ingest"
	"github.com/darko-mesaros/adventures-of-json/metric"
	"github.com/darko-mesaros/adventures-of-json/queue"
)

// Source provides batched deliveries. The queue is the production
// implementation.
type Source interface {
	DequeueBatch(ctx context.Context, maxCount int, maxWait time.Duration) ([]queue.Delivery, error)
}

// Config holds consumer configuration.
type Config struct {
	// GatewayURL is the write gateway endpoint documents are posted to.
	GatewayURL string `json:"gateway_url"`

	// MaxBatch and MaxWait are passed through to every drain.
	MaxBatch int           `json:"max_batch"`
	MaxWait  time.Duration `json:"max_wait"`

	// Timeout bounds a single gateway post.
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns the default consumer configuration.
func DefaultConfig() Config {
	return Config{
		GatewayURL: "http://localhost:8080/hubert",
		MaxBatch:   queue.DefaultMaxBatch,
		MaxWait:    queue.DefaultMaxWait,
		Timeout:    10 * time.Second,
	}
}

// Consumer is the batch consumer component. It runs a single drain loop:
// batches are processed sequentially and messages within a batch are
// isolated, one failed post never blocks the rest of the batch.
type Consumer struct {
	config     Config
	source     Source
	objects    ingest.ObjectGetter // resolves reference-only messages, may be nil
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metric.Metrics

	shutdown chan struct{}
	wg       sync.WaitGroup

	started   atomic.Bool
	startTime time.Time
	errCount  atomic.Int64
	lastErr   atomic.Value // stores string
}

var _ component.LifecycleComponent = (*Consumer)(nil)

// New creates a batch consumer. The object getter is only needed when queue
// messages arrive without an embedded payload.
func New(cfg Config, source Source, objects ingest.ObjectGetter, deps component.Dependencies) *Consumer {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = queue.DefaultMaxBatch
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = queue.DefaultMaxWait
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Consumer{
		config:     cfg,
		source:     source,
		objects:    objects,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     deps.GetLoggerWithComponent("consumer"),
		metrics:    deps.GetMetrics(),
	}
}

// Initialize validates the consumer configuration.
func (c *Consumer) Initialize() error {
	if c.config.GatewayURL == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Consumer", "Initialize", "empty gateway URL")
	}
	if c.source == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Consumer", "Initialize", "nil source")
	}
	return nil
}

// Start launches the drain loop.
func (c *Consumer) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return nil
	}

	c.shutdown = make(chan struct{})
	c.startTime = time.Now()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.drainLoop(ctx)
	}()

	c.logger.Info("Consumer started",
		slog.String("gateway_url", c.config.GatewayURL),
		slog.Int("max_batch", c.config.MaxBatch))
	return nil
}

// Stop signals the drain loop and waits for it to finish. A message being
// processed at shutdown finishes its post; unprocessed deliveries redeliver
// after the ack wait.
func (c *Consumer) Stop(timeout time.Duration) error {
	if !c.started.CompareAndSwap(true, false) {
		return nil
	}

	close(c.shutdown)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("shutdown timeout after %v", timeout),
			"Consumer", "Stop", "drain loop shutdown")
	}
}

// drainLoop repeatedly drains batches until shutdown.
func (c *Consumer) drainLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		default:
		}

		batch, err := c.source.DequeueBatch(ctx, c.config.MaxBatch, c.config.MaxWait)
		if err != nil {
			c.errCount.Add(1)
			c.lastErr.Store(err.Error())
			if !errors.IsTransient(err) {
				c.logger.Error("Drain failed with non-transient error, stopping",
					slog.String("error", err.Error()))
				return
			}
			// An empty fetch window also lands here; back off briefly
			select {
			case <-ctx.Done():
				return
			case <-c.shutdown:
				return
			case <-time.After(time.Second):
			}
			continue
		}

		c.processBatch(ctx, batch)
	}
}

// processBatch posts every delivery in the batch, isolating failures.
func (c *Consumer) processBatch(ctx context.Context, batch []queue.Delivery) {
	for _, delivery := range batch {
		if err := c.processDelivery(ctx, delivery); err != nil {
			c.errCount.Add(1)
			c.lastErr.Store(err.Error())
			c.metrics.ConsumerRedeliver.Inc()
			c.logger.Warn("Releasing message for redelivery",
				slog.String("id", delivery.Message.ID),
				slog.Int("attempt", delivery.Attempt()),
				slog.String("error", err.Error()))
			if retryErr := delivery.Retry(); retryErr != nil {
				c.logger.Error("Failed to release message",
					slog.String("id", delivery.Message.ID),
					slog.String("error", retryErr.Error()))
			}
			continue
		}

		if ackErr := delivery.Ack(); ackErr != nil {
			c.logger.Error("Failed to acknowledge message",
				slog.String("id", delivery.Message.ID),
				slog.String("error", ackErr.Error()))
			continue
		}
		c.metrics.ConsumerAcks.Inc()
	}
}

// processDelivery resolves the document content and posts it to the gateway.
func (c *Consumer) processDelivery(ctx context.Context, delivery queue.Delivery) error {
	start := time.Now()
	defer func() {
		c.metrics.ProcessingDuration.WithLabelValues("consumer", "post").Observe(time.Since(start).Seconds())
	}()

	body, err := c.resolveContent(ctx, delivery)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	return c.post(ctx, body)
}

// resolveContent returns the document to post: the embedded payload when
// present, otherwise a fresh fetch-and-annotate of the referenced object.
func (c *Consumer) resolveContent(ctx context.Context, delivery queue.Delivery) ([]byte, error) {
	if len(delivery.Message.Payload) > 0 {
		return delivery.Message.Payload, nil
	}

	if c.objects == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Consumer", "resolveContent",
			fmt.Sprintf("message %s has no payload and no object getter is configured", delivery.Message.ID))
	}

	data, err := c.objects.Get(ctx, delivery.Message.Key)
	if err != nil {
		return nil, errors.Wrap(err, "Consumer", "resolveContent",
			fmt.Sprintf("fetch object %s", delivery.Message.Key))
	}

	return ingest.Annotate(data, time.Now())
}

// post sends one document to the gateway. Any non-2xx response is an error.
func (c *Consumer) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return errors.WrapFatal(err, "Consumer", "post", "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapTransient(err, "Consumer", "post", "send request")
	}
	defer resp.Body.Close()

	// Read and discard body to reuse connection
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.WrapTransient(fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
			"Consumer", "post", "gateway response")
	}
	return nil
}

// Meta returns component metadata.
func (c *Consumer) Meta() component.Metadata {
	return component.Metadata{
		Name:        "consumer",
		Type:        "consumer",
		Description: fmt.Sprintf("Batch consumer posting to %s", c.config.GatewayURL),
		Version:     "1.0.0",
	}
}

// Health returns the current health status.
func (c *Consumer) Health() component.HealthStatus {
	lastErr, _ := c.lastErr.Load().(string)
	return component.HealthStatus{
		Healthy:    c.started.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(c.errCount.Load()),
		LastError:  lastErr,
		Uptime:     time.Since(c.startTime),
	}
}
