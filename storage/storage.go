// Package storage provides pluggable backend interfaces for storage operations.
package storage

import "context"

// Store is the pluggable backend interface for blob storage.
//
// Each storage instance is created with its own configuration (bucket name,
// connection, event subject). The interface uses a simple key-value pattern:
//   - Keys are strings (hierarchical paths supported via "/" separators)
//   - Values are binary data ([]byte) - JSON documents, images, any format
//   - Operations are context-aware for cancellation and timeouts
//
// Thread Safety:
// All Store implementations must be safe for concurrent use from multiple
// goroutines.
type Store interface {
	// Put stores binary data at the specified key, overwriting any
	// existing value.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves binary data for the specified key.
	// Returns an error if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns all keys matching the specified prefix.
	// An empty prefix lists every key. Returns an empty slice if no
	// keys match.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the specified key.
	// Returns nil if the key doesn't exist (idempotent operation).
	Delete(ctx context.Context, key string) error
}
