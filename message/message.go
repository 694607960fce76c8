// Package message defines the wire types that move between pipeline
// components: storage-change notifications emitted by the object store and
// the queue messages handed from the ingestion worker to the batch consumer.
package message

import (
	"encoding/json"
	"time"

	"github.com/darko-mesaros/adventures-of-json/errors"
)

// Event source and change-type values emitted by the object store.
const (
	SourceObjectStorage = "object-storage"
	TypeObjectCreated   = "object-created"
)

// RawEvent is a storage-change notification. It is produced by the object
// store on every stored object, consumed once by the event router, and never
// persisted.
type RawEvent struct {
	Source string    `json:"source"`
	Type   string    `json:"type"`
	Bucket string    `json:"bucket"`
	Key    string    `json:"key"`
	Time   time.Time `json:"time"`
}

// QueueMessage is the unit of work handed from the ingestion worker to the
// batch consumer through the durable queue. It references the stored object
// by bucket and key; Payload optionally embeds the annotated document so the
// consumer does not have to re-resolve it.
type QueueMessage struct {
	ID         string          `json:"id"`
	Bucket     string          `json:"bucket"`
	Key        string          `json:"key"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals the message for publication.
func (m QueueMessage) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.WrapInvalid(err, "QueueMessage", "Encode", "marshal message")
	}
	return data, nil
}

// DecodeQueueMessage unmarshals a queue message from its wire form.
func DecodeQueueMessage(data []byte) (QueueMessage, error) {
	var m QueueMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return QueueMessage{}, errors.WrapInvalid(err, "QueueMessage", "Decode", "unmarshal message")
	}
	if m.Key == "" {
		return QueueMessage{}, errors.WrapInvalid(errors.ErrInvalidData, "QueueMessage", "Decode", "missing object key")
	}
	return m, nil
}
