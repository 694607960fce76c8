// Package config loads and validates the pipeline configuration file.
package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/darko-mesaros/adventures-of-json/consumer"
	"github.com/darko-mesaros/adventures-of-json/docstore"
	"github.com/darko-mesaros/adventures-of-json/errors"
	"github.com/darko-mesaros/adventures-of-json/gateway"
	"github.com/darko-mesaros/adventures-of-json/queue"
	"github.com/darko-mesaros/adventures-of-json/router"
	"github.com/darko-mesaros/adventures-of-json/storage/objectstore"
)

// NATSConfig holds connection settings for the NATS server.
type NATSConfig struct {
	URL        string `json:"url"`
	ClientName string `json:"client_name"`
}

// DocStoreConfig holds document store settings.
type DocStoreConfig struct {
	Bucket string `json:"bucket"`
}

// MetricsConfig holds the metrics endpoint settings.
type MetricsConfig struct {
	Port int    `json:"port"`
	Path string `json:"path"`
}

// Config is the full pipeline configuration. Component sections reuse each
// component's own config type; zero values fall back to that component's
// defaults at construction.
type Config struct {
	NATS     NATSConfig         `json:"nats"`
	Storage  objectstore.Config `json:"storage"`
	Router   router.Config      `json:"router"`
	Queue    queue.Config       `json:"queue"`
	Consumer consumer.Config    `json:"consumer"`
	Gateway  gateway.Config     `json:"gateway"`
	DocStore DocStoreConfig     `json:"docstore"`
	Metrics  MetricsConfig      `json:"metrics"`
}

// DefaultConfig returns the configuration every field falls back to.
func DefaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:        "nats://localhost:4222",
			ClientName: "adventures-of-json",
		},
		Storage:  objectstore.DefaultConfig(),
		Router:   router.DefaultConfig(),
		Queue:    queue.DefaultConfig(),
		Consumer: consumer.DefaultConfig(),
		Gateway:  gateway.DefaultConfig(),
		DocStore: DocStoreConfig{Bucket: docstore.DefaultBucket},
		Metrics:  MetricsConfig{Port: 9090, Path: "/metrics"},
	}
}

// Load reads a JSON configuration file over the defaults, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "read config file")
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "parse config file")
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets deployment environments override file settings.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("ADVENTURES_NATS_URL"); url != "" {
		c.NATS.URL = url
	}
	if addr := os.Getenv("ADVENTURES_GATEWAY_ADDR"); addr != "" {
		c.Gateway.Addr = addr
	}
	if url := os.Getenv("ADVENTURES_GATEWAY_URL"); url != "" {
		c.Consumer.GatewayURL = url
	}
	if bucket := os.Getenv("ADVENTURES_STORAGE_BUCKET"); bucket != "" {
		c.Storage.BucketName = bucket
		c.Router.Rule.Bucket = bucket
	}
	if bucket := os.Getenv("ADVENTURES_DOCSTORE_BUCKET"); bucket != "" {
		c.DocStore.Bucket = bucket
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "nats.url is required")
	}
	if c.Storage.BucketName == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "storage.bucket_name is required")
	}
	if c.Queue.Stream == "" || c.Queue.Subject == "" || c.Queue.Consumer == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate",
			"queue.stream, queue.subject and queue.consumer are required")
	}
	if !strings.HasPrefix(c.Gateway.Path, "/") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"gateway.path must start with /")
	}
	if c.Consumer.GatewayURL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "consumer.gateway_url is required")
	}
	if c.DocStore.Bucket == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "docstore.bucket is required")
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "metrics.port out of range")
	}
	return nil
}
