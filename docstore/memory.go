package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/darko-mesaros/adventures-of-json/errors"
	"github.com/darko-mesaros/adventures-of-json/record"
)

// MemoryStore is an in-process Store for tests and local runs. FailWith
// injects a failure for every subsequent write so error branches can be
// exercised without a backend.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]record.StoredRecord
	failErr error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]record.StoredRecord),
	}
}

// FailWith makes every subsequent Upsert return err; nil restores normal
// operation.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Upsert inserts or fully replaces the record under its name
func (s *MemoryStore) Upsert(_ context.Context, rec *record.StoredRecord) error {
	if rec == nil || rec.Name == "" {
		return errors.WrapInvalid(
			fmt.Errorf("record has no name"), "MemoryStore", "Upsert", "check identity")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return s.failErr
	}

	s.items[rec.Name] = *rec
	return nil
}

// Get returns the record stored under name
func (s *MemoryStore) Get(_ context.Context, name string) (*record.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.items[name]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "MemoryStore", "Get", name)
	}

	out := rec
	return &out, nil
}

// Len returns the number of stored items
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
