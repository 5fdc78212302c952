package publishers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WatermillPublisher publishes through a watermill Publisher (in-memory channel, Kafka).
// The watermill publisher is owned by the transport that created it; Stop does not close it.
type WatermillPublisher struct {
	publisher message.Publisher
	logger    zerolog.Logger
}

// NewWatermillPublisher wraps publisher.
func NewWatermillPublisher(publisher message.Publisher, logger zerolog.Logger) (*WatermillPublisher, error) {
	if publisher == nil {
		return nil, errors.New("watermill publisher cannot be nil")
	}
	return &WatermillPublisher{
		publisher: publisher,
		logger:    logger.With().Str("component", "WatermillPublisher").Logger(),
	}, nil
}

// Publish sends payload synchronously, carrying attributes as watermill metadata.
func (p *WatermillPublisher) Publish(ctx context.Context, topicID string, payload []byte, attributes map[string]string) error {
	if payload == nil {
		return errors.New("cannot publish a nil payload")
	}
	if topicID == "" {
		return errors.New("cannot publish without a topic")
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	for k, v := range attributes {
		msg.Metadata.Set(k, v)
	}
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topicID, msg); err != nil {
		return fmt.Errorf("watermill publish to %s: %w", topicID, err)
	}
	p.logger.Debug().Str("message_id", msg.UUID).Str("topic_id", topicID).Msg("Message published")
	return nil
}

// Stop is a no-op: watermill publishes synchronously, so nothing is buffered.
func (p *WatermillPublisher) Stop() {}
