// Package docstore provides key-addressed persistence for hero records with
// full-item upsert semantics: a write with an existing name replaces the
// entire stored item, last write wins, no merge.
package docstore

import (
	"context"

	"github.com/darko-mesaros/adventures-of-json/record"
)

// Store is the document store contract consumed by the gateway.
//
// Implementations classify their failures through the errors package so the
// gateway can branch on error class rather than backend status codes:
// invalid input maps to client errors, transient backend trouble to
// service-unavailable responses.
type Store interface {
	// Upsert inserts the record if absent, otherwise fully replaces it.
	Upsert(ctx context.Context, rec *record.StoredRecord) error

	// Get returns the record stored under name, or a key-not-found error.
	Get(ctx context.Context, name string) (*record.StoredRecord, error)
}
