package consumer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darko-mesaros/adventures-of-json/component"
	"github.com/darko-mesaros/adventures-of-json/errors"
	"github.com/darko-mesaros/adventures-of-json/ingest"
	"github.com/darko-mesaros/adventures-of-json/message"
	"github.com/darko-mesaros/adventures-of-json/queue"
)

type fakeAcker struct {
	mu    sync.Mutex
	acked bool
	naked bool
}

func (a *fakeAcker) Ack() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = true
	return nil
}

func (a *fakeAcker) Nak() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.naked = true
	return nil
}

func (a *fakeAcker) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{NumDelivered: 1}, nil
}

type fakeObjects struct {
	data map[string][]byte
}

func (f *fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := f.data[key]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "fakeObjects", "Get", key)
	}
	return data, nil
}

// gatewayRecorder is an httptest handler that records received bodies and
// answers with a per-call status.
type gatewayRecorder struct {
	mu     sync.Mutex
	bodies [][]byte
	status func(body []byte) int
}

func (g *gatewayRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		g.mu.Lock()
		g.bodies = append(g.bodies, body)
		g.mu.Unlock()

		status := http.StatusOK
		if g.status != nil {
			status = g.status(body)
		}
		w.WriteHeader(status)
	}
}

func (g *gatewayRecorder) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.bodies)
}

func embeddedDelivery(id string, acker queue.Acker) queue.Delivery {
	return queue.NewDelivery(message.QueueMessage{
		ID:         id,
		Bucket:     "the-spicy-platypus-tiki-bar",
		Key:        "lobby/hero.json",
		EnqueuedAt: time.Now().UTC(),
		Payload:    []byte(`{"name": "Hubert"}`),
	}, acker)
}

func newTestConsumer(t *testing.T, url string, objects ingest.ObjectGetter) *Consumer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.GatewayURL = url
	cfg.MaxWait = 100 * time.Millisecond

	c := New(cfg, nopSource{}, objects, component.Dependencies{})
	require.NoError(t, c.Initialize())
	return c
}

type nopSource struct{}

func (nopSource) DequeueBatch(context.Context, int, time.Duration) ([]queue.Delivery, error) {
	return nil, nil
}

func TestConsumer_AckOnSuccess(t *testing.T) {
	recorder := &gatewayRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	c := newTestConsumer(t, server.URL, nil)

	acker := &fakeAcker{}
	c.processBatch(context.Background(), []queue.Delivery{embeddedDelivery("msg-1", acker)})

	assert.Equal(t, 1, recorder.count())
	assert.True(t, acker.acked)
	assert.False(t, acker.naked)
}

func TestConsumer_RetryOnGatewayError(t *testing.T) {
	recorder := &gatewayRecorder{status: func([]byte) int { return http.StatusServiceUnavailable }}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	c := newTestConsumer(t, server.URL, nil)

	acker := &fakeAcker{}
	c.processBatch(context.Background(), []queue.Delivery{embeddedDelivery("msg-1", acker)})

	assert.False(t, acker.acked)
	assert.True(t, acker.naked)
}

func TestConsumer_PerMessageIsolation(t *testing.T) {
	recorder := &gatewayRecorder{status: func(body []byte) int {
		var doc map[string]any
		if json.Unmarshal(body, &doc) == nil && doc["name"] == "bad" {
			return http.StatusBadRequest
		}
		return http.StatusOK
	}}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	c := newTestConsumer(t, server.URL, nil)

	good1, bad, good2 := &fakeAcker{}, &fakeAcker{}, &fakeAcker{}
	badDelivery := queue.NewDelivery(message.QueueMessage{
		ID: "bad", Key: "lobby/hero.json", Payload: []byte(`{"name": "bad"}`),
	}, bad)

	c.processBatch(context.Background(), []queue.Delivery{
		embeddedDelivery("good-1", good1),
		badDelivery,
		embeddedDelivery("good-2", good2),
	})

	assert.Equal(t, 3, recorder.count())
	assert.True(t, good1.acked)
	assert.True(t, bad.naked)
	assert.True(t, good2.acked)
}

func TestConsumer_ReferenceOnlyResolvesAndAnnotates(t *testing.T) {
	recorder := &gatewayRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	objects := &fakeObjects{data: map[string][]byte{
		"lobby/hero.json": []byte(`{"name": "Hubert", "services_visited": ["s3", "lambda"], "events": [{"x": "true"}]}`),
	}}
	c := newTestConsumer(t, server.URL, objects)

	acker := &fakeAcker{}
	delivery := queue.NewDelivery(message.QueueMessage{
		ID:  "ref-1",
		Key: "lobby/hero.json",
	}, acker)

	c.processBatch(context.Background(), []queue.Delivery{delivery})

	require.Equal(t, 1, recorder.count())
	assert.True(t, acker.acked)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(recorder.bodies[0], &doc))
	visited := doc["services_visited"].([]any)
	assert.Equal(t, []any{"s3", "lambda", "worker", "queue"}, visited)
}

func TestConsumer_ReferenceWithoutGetterRetries(t *testing.T) {
	recorder := &gatewayRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	c := newTestConsumer(t, server.URL, nil)

	acker := &fakeAcker{}
	delivery := queue.NewDelivery(message.QueueMessage{ID: "ref-1", Key: "lobby/hero.json"}, acker)

	c.processBatch(context.Background(), []queue.Delivery{delivery})

	assert.Equal(t, 0, recorder.count())
	assert.True(t, acker.naked)
}

func TestConsumer_GatewayUnreachableRetries(t *testing.T) {
	c := newTestConsumer(t, "http://127.0.0.1:1", nil)

	acker := &fakeAcker{}
	c.processBatch(context.Background(), []queue.Delivery{embeddedDelivery("msg-1", acker)})

	assert.False(t, acker.acked)
	assert.True(t, acker.naked)
}

func TestConsumer_InitializeValidation(t *testing.T) {
	c := New(Config{}, nil, nil, component.Dependencies{})
	err := c.Initialize()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

// batchSource yields one prepared batch, then empty batches.
type batchSource struct {
	mu    sync.Mutex
	batch []queue.Delivery
}

func (s *batchSource) DequeueBatch(_ context.Context, maxCount int, _ time.Duration) ([]queue.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batch) == 0 {
		return nil, nil
	}
	if len(s.batch) > maxCount {
		batch := s.batch[:maxCount]
		s.batch = s.batch[maxCount:]
		return batch, nil
	}
	batch := s.batch
	s.batch = nil
	return batch, nil
}

func TestConsumer_LifecycleDrainsBatch(t *testing.T) {
	recorder := &gatewayRecorder{}
	server := httptest.NewServer(recorder.handler())
	defer server.Close()

	ackers := make([]*fakeAcker, 3)
	deliveries := make([]queue.Delivery, 3)
	for i := range ackers {
		ackers[i] = &fakeAcker{}
		deliveries[i] = embeddedDelivery("msg", ackers[i])
	}

	cfg := DefaultConfig()
	cfg.GatewayURL = server.URL
	cfg.MaxWait = 50 * time.Millisecond

	c := New(cfg, &batchSource{batch: deliveries}, nil, component.Dependencies{})
	require.NoError(t, c.Initialize())
	require.NoError(t, c.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return recorder.count() == 3
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Stop(time.Second))
	for _, a := range ackers {
		assert.True(t, a.acked)
	}
}
