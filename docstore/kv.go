package docstore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/darko-mesaros/adventures-of-json/errors"
	"github.com/darko-mesaros/adventures-of-json/natsclient"
	"github.com/darko-mesaros/adventures-of-json/record"
)

// DefaultBucket is the KV bucket holding hero records
const DefaultBucket = "ittybitty"

// KVStore implements Store on a NATS KV bucket. KV Put is a whole-value
// write, which gives the upsert contract its replace-not-merge semantics
// for free.
type KVStore struct {
	bucket jetstream.KeyValue
	name   string
}

// NewKVStore binds (creating if needed) the named KV bucket
func NewKVStore(ctx context.Context, nc *natsclient.Client, bucket string) (*KVStore, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}

	kv, err := nc.KeyValue(ctx, bucket)
	if err != nil {
		return nil, errors.WrapTransient(err, "KVStore", "NewKVStore",
			fmt.Sprintf("bind bucket %s", bucket))
	}

	return &KVStore{bucket: kv, name: bucket}, nil
}

// Bucket returns the bucket name
func (s *KVStore) Bucket() string {
	return s.name
}

// Upsert writes the record under its name, replacing any existing item
func (s *KVStore) Upsert(ctx context.Context, rec *record.StoredRecord) error {
	if rec == nil || rec.Name == "" {
		return errors.WrapInvalid(
			fmt.Errorf("record has no name"), "KVStore", "Upsert", "check identity")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return errors.WrapInvalid(err, "KVStore", "Upsert", "marshal record")
	}

	if _, err := s.bucket.Put(ctx, rec.Name, data); err != nil {
		return errors.WrapTransient(err, "KVStore", "Upsert",
			fmt.Sprintf("put %s", rec.Name))
	}

	return nil
}

// Get returns the record stored under name
func (s *KVStore) Get(ctx context.Context, name string) (*record.StoredRecord, error) {
	entry, err := s.bucket.Get(ctx, name)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "KVStore", "Get", name)
		}
		return nil, errors.WrapTransient(err, "KVStore", "Get",
			fmt.Sprintf("get %s", name))
	}

	var rec record.StoredRecord
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return nil, errors.WrapInvalid(err, "KVStore", "Get", "unmarshal record")
	}

	return &rec, nil
}
