package publishers

import (
	"context"
	"errors"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// GetDefaultPublishSettings returns the batching settings applied to every topic.
func GetDefaultPublishSettings() pubsub.PublishSettings {
	return pubsub.PublishSettings{
		DelayThreshold: 100 * time.Millisecond,
		CountThreshold: 100,
		ByteThreshold:  1e6,
		NumGoroutines:  10,
		Timeout:        60 * time.Second,
	}
}

// GooglePubsubPublisher publishes to any number of Pub/Sub topics over one
// client. Topic handles are created on first use and reused.
type GooglePubsubPublisher struct {
	client   *pubsub.Client
	settings pubsub.PublishSettings
	logger   zerolog.Logger

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
	wg     sync.WaitGroup
}

// NewGooglePubsubPublisher creates a publisher on an existing client. The
// publisher does not close the client.
func NewGooglePubsubPublisher(client *pubsub.Client, settings pubsub.PublishSettings, logger zerolog.Logger) (*GooglePubsubPublisher, error) {
	if client == nil {
		return nil, errors.New("pubsub client cannot be nil for publisher")
	}
	return &GooglePubsubPublisher{
		client:   client,
		settings: settings,
		logger:   logger.With().Str("component", "GooglePubsubPublisher").Logger(),
		topics:   make(map[string]*pubsub.Topic),
	}, nil
}

func (p *GooglePubsubPublisher) topic(topicID string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[topicID]; ok {
		return t
	}
	t := p.client.Topic(topicID)
	t.PublishSettings.DelayThreshold = p.settings.DelayThreshold
	t.PublishSettings.CountThreshold = p.settings.CountThreshold
	t.PublishSettings.ByteThreshold = p.settings.ByteThreshold
	t.PublishSettings.NumGoroutines = p.settings.NumGoroutines
	t.PublishSettings.Timeout = p.settings.Timeout
	p.topics[topicID] = t
	return t
}

// Publish queues payload on topicID and returns without waiting for the
// server. The publish result is logged asynchronously.
func (p *GooglePubsubPublisher) Publish(ctx context.Context, topicID string, payload []byte, attributes map[string]string) error {
	if payload == nil {
		return errors.New("cannot publish a nil payload")
	}
	if topicID == "" {
		return errors.New("cannot publish without a topic")
	}

	result := p.topic(topicID).Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: attributes,
	})

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		msgID, err := result.Get(context.Background())
		if err != nil {
			p.logger.Error().Err(err).Str("topic_id", topicID).Interface("attributes", attributes).Msg("Failed to publish message to Pub/Sub")
			return
		}
		p.logger.Debug().Str("message_id", msgID).Str("topic_id", topicID).Msg("Message published successfully to Pub/Sub")
	}()
	return nil
}

// Stop flushes every topic concurrently and waits for the outstanding results.
func (p *GooglePubsubPublisher) Stop() {
	p.mu.Lock()
	topics := make([]*pubsub.Topic, 0, len(p.topics))
	for _, t := range p.topics {
		topics = append(topics, t)
	}
	p.topics = make(map[string]*pubsub.Topic)
	p.mu.Unlock()

	var g errgroup.Group
	for _, t := range topics {
		g.Go(func() error {
			t.Stop()
			return nil
		})
	}
	_ = g.Wait()
	p.wg.Wait()
	p.logger.Info().Int("topic_count", len(topics)).Msg("Pub/Sub topics stopped and flushed.")
}
