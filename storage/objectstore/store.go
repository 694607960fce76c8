// Package objectstore provides a NATS ObjectStore-based storage backend that
// publishes a storage-change notification for every stored object.
package objectstore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/darko-mesaros/adventures-of-json/errors"
	"github.com/darko-mesaros/adventures-of-json/message"
	"github.com/darko-mesaros/adventures-of-json/metric"
	"github.com/darko-mesaros/adventures-of-json/natsclient"
	"github.com/darko-mesaros/adventures-of-json/storage"
)

// Store implements storage.Store on a NATS JetStream ObjectStore bucket.
// Every successful Put emits a message.RawEvent on the configured events
// subject so the router sees object creations without polling.
type Store struct {
	bucket     jetstream.ObjectStore
	natsClient *natsclient.Client
	config     Config
	logger     *slog.Logger
	metrics    *metric.Metrics
}

// Ensure Store implements the backend interface
var _ storage.Store = (*Store)(nil)

// NewStore creates an ObjectStore backend with default configuration.
func NewStore(ctx context.Context, nc *natsclient.Client) (*Store, error) {
	return NewStoreWithConfig(ctx, nc, DefaultConfig())
}

// NewStoreWithConfig creates an ObjectStore backend, binding (and creating if
// necessary) the configured bucket.
func NewStoreWithConfig(ctx context.Context, nc *natsclient.Client, cfg Config) (*Store, error) {
	if cfg.BucketName == "" {
		cfg.BucketName = DefaultBucket
	}

	bucket, err := nc.ObjectStore(ctx, cfg.BucketName)
	if err != nil {
		return nil, errors.Wrap(err, "ObjectStore", "NewStoreWithConfig", "bind bucket")
	}

	return &Store{
		bucket:     bucket,
		natsClient: nc,
		config:     cfg,
		logger:     slog.Default(),
		metrics:    metric.NewMetrics(),
	}, nil
}

// WithLogger sets the structured logger used for event publishing failures.
func (s *Store) WithLogger(logger *slog.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithMetrics sets the metrics collectors the store records into.
func (s *Store) WithMetrics(m *metric.Metrics) *Store {
	if m != nil {
		s.metrics = m
	}
	return s
}

// Bucket returns the configured bucket name.
func (s *Store) Bucket() string {
	return s.config.BucketName
}

// Put stores binary data at the given key and publishes an object-created
// notification. The notification is best-effort: a publish failure is logged
// but does not fail the write.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "ObjectStore", "Put", "empty key")
	}

	if _, err := s.bucket.PutBytes(ctx, key, data); err != nil {
		return errors.WrapTransient(err, "ObjectStore", "Put", "store object")
	}

	s.metrics.ObjectsStored.Inc()
	s.publishCreated(ctx, key)
	return nil
}

// Get retrieves the data stored at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.GetBytes(ctx, key)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrObjectNotFound) {
			s.metrics.ObjectsFetched.WithLabelValues("miss").Inc()
			return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "ObjectStore", "Get", key)
		}
		s.metrics.ObjectsFetched.WithLabelValues("error").Inc()
		return nil, errors.WrapTransient(err, "ObjectStore", "Get", "fetch object")
	}

	s.metrics.ObjectsFetched.WithLabelValues("ok").Inc()
	return data, nil
}

// List returns the keys matching prefix in lexicographic order.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	infos, err := s.bucket.List(ctx)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrNoObjectsFound) {
			return []string{}, nil
		}
		return nil, errors.WrapTransient(err, "ObjectStore", "List", "list objects")
	}

	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Deleted {
			continue
		}
		if prefix == "" || strings.HasPrefix(info.Name, prefix) {
			keys = append(keys, info.Name)
		}
	}
	return keys, nil
}

// Delete removes the object at key. Deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, key); err != nil {
		if stderrors.Is(err, jetstream.ErrObjectNotFound) {
			return nil
		}
		return errors.WrapTransient(err, "ObjectStore", "Delete", "delete object")
	}
	return nil
}

// publishCreated emits a storage-change notification for a stored object.
func (s *Store) publishCreated(ctx context.Context, key string) {
	if s.config.EventsSubject == "" {
		return
	}

	event := message.RawEvent{
		Source: message.SourceObjectStorage,
		Type:   message.TypeObjectCreated,
		Bucket: s.config.BucketName,
		Key:    key,
		Time:   time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal storage event",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}

	if err := s.natsClient.Publish(ctx, s.config.EventsSubject, data); err != nil {
		s.logger.Error("Failed to publish storage event",
			slog.String("subject", s.config.EventsSubject),
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}
