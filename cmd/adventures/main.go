// Package main implements the entry point for the adventures-of-json
// pipeline: an event-driven document ingestion system that moves JSON
// documents from an object store through a durable queue into a typed
// document store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/darko-mesaros/adventures-of-json/component"
	"github.com/darko-mesaros/adventures-of-json/config"
	"github.com/darko-mesaros/adventures-of-json/consumer"
	"github.com/darko-mesaros/adventures-of-json/docstore"
	"github.com/darko-mesaros/adventures-of-json/gateway"
	"github.com/darko-mesaros/adventures-of-json/ingest"
	"github.com/darko-mesaros/adventures-of-json/metric"
	"github.com/darko-mesaros/adventures-of-json/natsclient"
	"github.com/darko-mesaros/adventures-of-json/queue"
	"github.com/darko-mesaros/adventures-of-json/router"
	"github.com/darko-mesaros/adventures-of-json/storage/objectstore"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "adventures"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting document ingestion pipeline",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()

	natsClient, err := natsclient.NewClient(cfg.NATS.URL,
		natsclient.WithClientName(cfg.NATS.ClientName))
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}
	if err := connectToNATS(ctx, natsClient); err != nil {
		return err
	}
	defer func() { _ = natsClient.Close(ctx) }()

	registry := metric.NewRegistry()
	metricsServer := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
	go func() {
		if err := metricsServer.Start(); err != nil {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	defer func() { _ = metricsServer.Stop() }()
	slog.Info("Metrics available", "address", metricsServer.Address())

	components, err := buildPipeline(ctx, cfg, natsClient, registry, logger)
	if err != nil {
		return err
	}

	return runWithSignalHandling(ctx, components, cliCfg.ShutdownTimeout)
}

// connectToNATS establishes the NATS connection and waits for it to be ready
func connectToNATS(ctx context.Context, natsClient *natsclient.Client) error {
	slog.Info("Connecting to NATS", "url", natsClient.URL())
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := natsClient.WaitForConnection(connCtx); err != nil {
		return fmt.Errorf("NATS connection timeout: %w", err)
	}
	return nil
}

// buildPipeline wires every pipeline component in dependency order. The
// returned slice is ordered for startup; shutdown walks it in reverse.
func buildPipeline(
	ctx context.Context,
	cfg *config.Config,
	natsClient *natsclient.Client,
	registry *metric.Registry,
	logger *slog.Logger,
) ([]component.LifecycleComponent, error) {
	deps := component.Dependencies{
		NATSClient: natsClient,
		Metrics:    registry.Metrics,
		Logger:     logger,
	}

	store, err := objectstore.NewStoreWithConfig(ctx, natsClient, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("create object store: %w", err)
	}
	store.WithLogger(deps.GetLoggerWithComponent("objectstore")).WithMetrics(registry.Metrics)

	docStore, err := docstore.NewKVStore(ctx, natsClient, cfg.DocStore.Bucket)
	if err != nil {
		return nil, fmt.Errorf("create document store: %w", err)
	}

	q := queue.New(cfg.Queue, deps)
	worker := ingest.NewWorker(ingest.DefaultConfig(), store, q, deps)
	rtr := router.New(cfg.Router, worker, deps)
	gw := gateway.New(cfg.Gateway, docStore, deps)
	cons := consumer.New(cfg.Consumer, q, store, deps)

	// Downstream first so every stage has somewhere to deliver
	components := []component.LifecycleComponent{q, gw, cons, rtr}

	for _, c := range components {
		if err := c.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize %s: %w", c.Meta().Name, err)
		}
	}
	return components, nil
}

// runWithSignalHandling starts components and handles shutdown signals
func runWithSignalHandling(
	ctx context.Context,
	components []component.LifecycleComponent,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	for _, c := range components {
		if err := c.Start(signalCtx); err != nil {
			return fmt.Errorf("start %s: %w", c.Meta().Name, err)
		}
		slog.Info("Component started", "name", c.Meta().Name)
	}
	slog.Info("Pipeline started")

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	// Stop in reverse order so upstream stages drain first
	var firstErr error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.Stop(shutdownTimeout); err != nil {
			slog.Error("Component stop failed", "name", c.Meta().Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", firstErr)
	}
	slog.Info("Pipeline shutdown complete")
	return nil
}
