package messaging

import (
	"context"

	"github.com/illmade-knight/go-billing/pkg/routing"
	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/rs/zerolog"
)

// EnvelopePublisher encodes envelopes and hands them to a MessagePublisher.
// Publishing is fire-and-forget: failures are logged and never returned.
type EnvelopePublisher struct {
	publisher MessagePublisher
	resolver  *routing.Resolver
	logger    zerolog.Logger
}

// NewEnvelopePublisher creates an EnvelopePublisher. resolver may be nil, in
// which case PublishToRoutes has no destinations.
func NewEnvelopePublisher(publisher MessagePublisher, resolver *routing.Resolver, logger zerolog.Logger) *EnvelopePublisher {
	return &EnvelopePublisher{
		publisher: publisher,
		resolver:  resolver,
		logger:    logger.With().Str("component", "EnvelopePublisher").Logger(),
	}
}

// Publish sends envelope to topicID with a single MessageType attribute.
func (p *EnvelopePublisher) Publish(ctx context.Context, envelope *types.Envelope, topicID string) {
	payload, err := envelope.Encode()
	if err != nil {
		p.logger.Error().Err(err).Str("topic_id", topicID).Msg("Failed to encode envelope for publishing")
		return
	}

	attributes := map[string]string{
		types.HeaderMessageType: envelope.MessageType.Code(),
	}
	if err := p.publisher.Publish(ctx, topicID, payload, attributes); err != nil {
		p.logger.Error().Err(err).
			Str("topic_id", topicID).
			Str("message_type", envelope.MessageType.Code()).
			Msg("Failed to publish envelope")
		return
	}
	p.logger.Debug().Str("topic_id", topicID).Str("message_type", envelope.MessageType.Code()).Msg("Envelope handed to publisher")
}

// PublishToRoutes publishes envelope to every topic configured for its type.
// It returns the topics it attempted; an empty result is not an error.
func (p *EnvelopePublisher) PublishToRoutes(ctx context.Context, envelope *types.Envelope) []string {
	topics := p.TargetTopicNames(envelope.MessageType)
	if len(topics) == 0 {
		p.logger.Debug().Str("message_type", envelope.MessageType.Code()).Msg("No destination topics configured for message type")
		return topics
	}
	for _, topicID := range topics {
		p.Publish(ctx, envelope, topicID)
	}
	return topics
}

// TargetTopicNames returns the configured destinations for messageType.
func (p *EnvelopePublisher) TargetTopicNames(messageType types.MessageType) []string {
	if p.resolver == nil {
		return []string{}
	}
	return p.resolver.ResolveTopics(messageType)
}
