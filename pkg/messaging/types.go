package messaging

import (
	"context"

	"github.com/illmade-knight/go-billing/pkg/types"
)

// ====================================================================================
// This file defines the contracts between the dispatcher, the bus transports and
// the billing business logic.
// ====================================================================================

// MessageProcessor is the downstream business logic that consumes decoded envelopes.
// Implementations must be safe for concurrent use.
type MessageProcessor interface {
	ProcessMessageReceived(ctx context.Context, envelope *types.Envelope) error
}

// ProcessorFunc adapts a function to the MessageProcessor interface.
type ProcessorFunc func(ctx context.Context, envelope *types.Envelope) error

func (f ProcessorFunc) ProcessMessageReceived(ctx context.Context, envelope *types.Envelope) error {
	return f(ctx, envelope)
}

// MessagePublisher sends raw payloads with attributes to a named topic.
type MessagePublisher interface {
	Publish(ctx context.Context, topicID string, payload []byte, attributes map[string]string) error
	// Stop flushes outstanding messages and releases resources.
	Stop()
}

// MessageConsumer is a source of raw bus messages for a single subscription.
type MessageConsumer interface {
	// Messages returns a read-only channel from which raw messages can be consumed.
	Messages() <-chan types.ConsumedMessage
	// Start initiates the consumption of messages.
	Start(ctx context.Context) error
	// Stop gracefully ceases message consumption.
	Stop() error
	// Done returns a channel that is closed when the consumer has fully stopped.
	Done() <-chan struct{}
}

// Transport is a bus implementation: Google Pub/Sub, Kafka or in-memory.
type Transport interface {
	// Name identifies the implementation, e.g. "google".
	Name() string
	// NewConsumer attaches to the given subscription. An error here means the
	// subscription cannot be established.
	NewConsumer(ctx context.Context, subscriptionID string) (MessageConsumer, error)
	// Publisher returns the transport's shared publisher.
	Publisher() MessagePublisher
	// Close releases the transport's clients.
	Close() error
}

// Handler is the module's messaging surface, independent of the bus in use.
type Handler interface {
	SubscribeToSubscription(ctx context.Context, subscriptionID string) error
	PublishMessage(ctx context.Context, envelope *types.Envelope, topicID string)
	TargetTopicNames(messageType types.MessageType) []string
	Stop()
}
