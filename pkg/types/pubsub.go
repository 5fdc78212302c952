package types

import (
	"time"
)

// ConsumedMessage is a message as received from any bus transport, before the
// dispatcher has classified or decoded it.
type ConsumedMessage struct {
	// ID is the unique identifier assigned to the message by the source broker.
	ID string
	// Payload is the raw byte content of the message.
	Payload []byte
	// Attributes holds the transport metadata delivered alongside the payload
	// (Pub/Sub attributes, Kafka headers, watermill metadata).
	Attributes map[string]string
	// PublishTime is the timestamp when the message was originally published.
	PublishTime time.Time
	// Ack is a function to call to acknowledge the message with the broker.
	Ack func()
	// Nack is a function to call to signal that the message should be
	// redelivered. The dispatcher never calls it; it is used on shutdown for
	// messages that were received but never dispatched.
	Nack func()
}
