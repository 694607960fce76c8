package queue

import (
	"github.com/nats-io/nats.go/jetstream"

	"github.com/darko-mesaros/adventures-of-json/message"
)

// Acker is the acknowledgement surface of a delivered JetStream message.
// jetstream.Msg satisfies it.
type Acker interface {
	Ack() error
	Nak() error
	Metadata() (*jetstream.MsgMetadata, error)
}

// Delivery is a single dequeued message with its acknowledgement handle.
// Exactly one of Ack or Retry should be called per delivery; calling neither
// leaves the message invisible until the ack wait elapses, after which it
// redelivers.
type Delivery struct {
	Message message.QueueMessage

	raw Acker
}

// NewDelivery binds a queue message to its acknowledgement handle.
func NewDelivery(msg message.QueueMessage, raw Acker) Delivery {
	return Delivery{Message: msg, raw: raw}
}

// Ack acknowledges the delivery, removing the message from the stream.
func (d Delivery) Ack() error {
	if d.raw == nil {
		return nil
	}
	return d.raw.Ack()
}

// Retry releases the delivery for immediate redelivery.
func (d Delivery) Retry() error {
	if d.raw == nil {
		return nil
	}
	return d.raw.Nak()
}

// Attempt returns the delivery attempt number, starting at 1. Zero means the
// attempt count is unavailable.
func (d Delivery) Attempt() int {
	if d.raw == nil {
		return 0
	}
	meta, err := d.raw.Metadata()
	if err != nil {
		return 0
	}
	return int(meta.NumDelivered)
}
