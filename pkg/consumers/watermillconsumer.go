package consumers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/rs/zerolog"
)

// WatermillConsumer adapts a watermill Subscriber (in-memory channel, Kafka)
// to the ConsumedMessage stream. The subscription name is the watermill topic.
type WatermillConsumer struct {
	subscriber     message.Subscriber
	topic          string
	logger         zerolog.Logger
	outputChan     chan types.ConsumedMessage
	doneChan       chan struct{}
	stopOnce       sync.Once
	cancelReceive  context.CancelFunc
	receiveStarted bool
	mu             sync.Mutex
}

// NewWatermillConsumer creates a consumer for topic on subscriber.
func NewWatermillConsumer(subscriber message.Subscriber, topic string, bufferSize int, logger zerolog.Logger) (*WatermillConsumer, error) {
	if subscriber == nil {
		return nil, errors.New("watermill subscriber cannot be nil")
	}
	if topic == "" {
		return nil, errors.New("subscription topic cannot be empty")
	}
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &WatermillConsumer{
		subscriber: subscriber,
		topic:      topic,
		logger:     logger.With().Str("component", "WatermillConsumer").Str("subscription_id", topic).Logger(),
		outputChan: make(chan types.ConsumedMessage, bufferSize),
		doneChan:   make(chan struct{}),
	}, nil
}

func (c *WatermillConsumer) Messages() <-chan types.ConsumedMessage { return c.outputChan }

// Start subscribes and forwards messages until ctx is cancelled or Stop is called.
func (c *WatermillConsumer) Start(ctx context.Context) error {
	receiveCtx, cancel := context.WithCancel(ctx)
	messages, err := c.subscriber.Subscribe(receiveCtx, c.topic)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to %s: %w", c.topic, err)
	}

	c.mu.Lock()
	c.cancelReceive = cancel
	c.receiveStarted = true
	c.mu.Unlock()

	c.logger.Info().Msg("Watermill receive loop started.")
	go func() {
		defer close(c.doneChan)
		defer close(c.outputChan)
		for wmMsg := range messages {
			c.forward(receiveCtx, wmMsg)
		}
		c.logger.Info().Msg("Watermill receive loop stopped.")
	}()
	return nil
}

func (c *WatermillConsumer) forward(ctx context.Context, wmMsg *message.Message) {
	attributes := make(map[string]string, len(wmMsg.Metadata))
	for k, v := range wmMsg.Metadata {
		attributes[k] = v
	}
	payloadCopy := make([]byte, len(wmMsg.Payload))
	copy(payloadCopy, wmMsg.Payload)

	consumedMsg := types.ConsumedMessage{
		ID:          wmMsg.UUID,
		Payload:     payloadCopy,
		Attributes:  attributes,
		PublishTime: time.Now().UTC(),
		Ack:         func() { wmMsg.Ack() },
		Nack:        func() { wmMsg.Nack() },
	}

	select {
	case c.outputChan <- consumedMsg:
	case <-ctx.Done():
		wmMsg.Nack()
		c.logger.Warn().Str("msg_id", wmMsg.UUID).Msg("Consumer stopping, Nacking message.")
	}
}

// Stop cancels the subscription and waits for the receive loop to finish.
func (c *WatermillConsumer) Stop() error {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		cancel, started := c.cancelReceive, c.receiveStarted
		c.mu.Unlock()

		if !started {
			close(c.outputChan)
			close(c.doneChan)
			return
		}
		cancel()
		select {
		case <-c.doneChan:
		case <-time.After(30 * time.Second):
			c.logger.Error().Msg("Timeout waiting for watermill receive loop to stop.")
		}
	})
	return nil
}

func (c *WatermillConsumer) Done() <-chan struct{} { return c.doneChan }
