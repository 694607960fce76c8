// Package main implements a small seeding tool that stores a JSON document
// in the pipeline's object store bucket, which kicks off ingestion of that
// document end to end.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/darko-mesaros/adventures-of-json/config"
	"github.com/darko-mesaros/adventures-of-json/natsclient"
	"github.com/darko-mesaros/adventures-of-json/storage/objectstore"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", os.Getenv("ADVENTURES_CONFIG"), "Path to configuration file")
		filePath   = flag.String("file", "", "Path to the JSON document to store (required)")
		key        = flag.String("key", "lobby/hero.json", "Object key to store the document under")
	)
	flag.Parse()

	if *filePath == "" {
		return fmt.Errorf("-file is required")
	}

	doc, err := os.ReadFile(*filePath)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	if !json.Valid(doc) {
		return fmt.Errorf("%s is not valid JSON", *filePath)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	natsClient, err := natsclient.NewClient(cfg.NATS.URL,
		natsclient.WithClientName("adventures-seed"))
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer func() { _ = natsClient.Close(ctx) }()

	store, err := objectstore.NewStoreWithConfig(ctx, natsClient, cfg.Storage)
	if err != nil {
		return fmt.Errorf("create object store: %w", err)
	}

	if err := store.Put(ctx, *key, doc); err != nil {
		return fmt.Errorf("store document: %w", err)
	}

	fmt.Printf("stored %s as %s in bucket %s\n", *filePath, *key, store.Bucket())
	return nil
}
