// Package adventures provides an event-driven document ingestion pipeline
// built on NATS JetStream.
//
// # Architecture
//
// Documents flow through six loosely coupled stages:
//
//	┌──────────────┐  object-created   ┌────────┐  matched   ┌────────┐
//	│ Object store │ ────────────────▶ │ Router │ ─────────▶ │ Worker │
//	│  (JetStream  │     events        └────────┘            └────────┘
//	│ ObjectStore) │                                              │ annotate + enqueue
//	└──────────────┘                                              ▼
//	┌──────────────┐   typed upsert    ┌─────────┐  batches  ┌─────────┐
//	│ Document     │ ◀──────────────── │ Gateway │ ◀──────── │  Queue  │
//	│ store (KV)   │    POST /hubert   └─────────┘  consumer └─────────┘
//	└──────────────┘
//
// The object store publishes a storage-change notification for every stored
// object. The router filters those notifications against a single rule
// (source, type, bucket, key prefix) and hands matches to the ingestion
// worker, which fetches the object, annotates a copy with pipeline markers
// and enqueues it on a durable work-queue stream. The batch consumer drains
// the queue in bounded batches and posts each document to the HTTP write
// gateway, which validates the document against a JSON schema, coerces its
// string-typed fields into a typed record and upserts it into a key-value
// document store.
//
// Delivery is at-most-once up to the queue and at-least-once after it:
// events lost before enqueueing are gone, while enqueued documents are
// acknowledged only after the gateway confirms the write. Upserts are
// keyed by document name, so redeliveries converge to a single stored
// record.
package adventures
