package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/rs/zerolog"
)

// BusHandler implements Handler over any Transport. The transport is chosen once
// at startup; BusHandler never inspects which one it was given.
type BusHandler struct {
	transport  Transport
	dispatcher *Dispatcher
	publisher  *EnvelopePublisher
	numWorkers int
	logger     zerolog.Logger

	mu       sync.Mutex
	services []*SubscriptionService
	stopOnce sync.Once
}

// NewBusHandler wires a handler from its collaborators.
func NewBusHandler(transport Transport, dispatcher *Dispatcher, publisher *EnvelopePublisher, numWorkers int, logger zerolog.Logger) (*BusHandler, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if dispatcher == nil || publisher == nil {
		return nil, fmt.Errorf("dispatcher and publisher are required")
	}
	return &BusHandler{
		transport:  transport,
		dispatcher: dispatcher,
		publisher:  publisher,
		numWorkers: numWorkers,
		logger:     logger.With().Str("component", "BusHandler").Str("transport", transport.Name()).Logger(),
	}, nil
}

// SubscribeToSubscription attaches the dispatcher to subscriptionID and starts
// consuming. A returned error means the subscription could not be established.
func (h *BusHandler) SubscribeToSubscription(ctx context.Context, subscriptionID string) error {
	consumer, err := h.transport.NewConsumer(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to attach to subscription %s: %w", subscriptionID, err)
	}

	service, err := NewSubscriptionService(h.numWorkers, consumer, h.dispatcher, h.logger.With().Str("subscription_id", subscriptionID).Logger())
	if err != nil {
		return err
	}
	if err := service.Start(); err != nil {
		return fmt.Errorf("failed to start subscription %s: %w", subscriptionID, err)
	}

	h.mu.Lock()
	h.services = append(h.services, service)
	h.mu.Unlock()

	h.logger.Info().Str("subscription_id", subscriptionID).Msg("Subscribed")
	return nil
}

// PublishMessage publishes envelope to topicID; failures are logged only.
func (h *BusHandler) PublishMessage(ctx context.Context, envelope *types.Envelope, topicID string) {
	h.publisher.Publish(ctx, envelope, topicID)
}

// TargetTopicNames returns the routed destinations for messageType.
func (h *BusHandler) TargetTopicNames(messageType types.MessageType) []string {
	return h.publisher.TargetTopicNames(messageType)
}

// Stop stops every subscription, flushes the publisher and closes the transport.
func (h *BusHandler) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		services := h.services
		h.services = nil
		h.mu.Unlock()

		for _, s := range services {
			s.Stop()
		}
		h.transport.Publisher().Stop()
		if err := h.transport.Close(); err != nil {
			h.logger.Error().Err(err).Msg("Error closing transport")
		}
		h.logger.Info().Msg("Messaging handler stopped.")
	})
}
