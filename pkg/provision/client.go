package provision

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// --- Bus administration abstraction ---

type Topic interface {
	ID() string
	Exists(ctx context.Context) (bool, error)
}

type Subscription interface {
	ID() string
	Exists(ctx context.Context) (bool, error)
}

// AdminClient creates and inspects topics and subscriptions.
type AdminClient interface {
	Topic(id string) Topic
	Subscription(id string) Subscription
	CreateTopic(ctx context.Context, topicID string) (Topic, error)
	CreateSubscription(ctx context.Context, spec SubscriptionSpec) (Subscription, error)
	Close() error
}

// --- Adapters for the real Pub/Sub client ---

type psTopicAdapter struct{ topic *pubsub.Topic }

func (a *psTopicAdapter) ID() string                               { return a.topic.ID() }
func (a *psTopicAdapter) Exists(ctx context.Context) (bool, error) { return a.topic.Exists(ctx) }

type psSubscriptionAdapter struct{ sub *pubsub.Subscription }

func (a *psSubscriptionAdapter) ID() string                               { return a.sub.ID() }
func (a *psSubscriptionAdapter) Exists(ctx context.Context) (bool, error) { return a.sub.Exists(ctx) }

type psClientAdapter struct{ client *pubsub.Client }

func (a *psClientAdapter) Topic(id string) Topic { return &psTopicAdapter{topic: a.client.Topic(id)} }
func (a *psClientAdapter) Subscription(id string) Subscription {
	return &psSubscriptionAdapter{sub: a.client.Subscription(id)}
}
func (a *psClientAdapter) CreateTopic(ctx context.Context, topicID string) (Topic, error) {
	t, err := a.client.CreateTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	return &psTopicAdapter{topic: t}, nil
}
func (a *psClientAdapter) CreateSubscription(ctx context.Context, spec SubscriptionSpec) (Subscription, error) {
	cfg := pubsub.SubscriptionConfig{Topic: a.client.Topic(spec.Topic)}
	if spec.AckDeadline > 0 {
		cfg.AckDeadline = spec.AckDeadline
	}
	s, err := a.client.CreateSubscription(ctx, spec.Name, cfg)
	if err != nil {
		return nil, err
	}
	return &psSubscriptionAdapter{sub: s}, nil
}
func (a *psClientAdapter) Close() error { return a.client.Close() }

// NewPubSubAdminClient wraps a concrete *pubsub.Client to satisfy AdminClient.
func NewPubSubAdminClient(client *pubsub.Client) AdminClient {
	if client == nil {
		return nil
	}
	return &psClientAdapter{client: client}
}

// CreateGooglePubSubAdminClient creates a Pub/Sub admin client for projectID.
func CreateGooglePubSubAdminClient(ctx context.Context, projectID string, clientOpts ...option.ClientOption) (AdminClient, error) {
	realClient, err := pubsub.NewClient(ctx, projectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub.NewClient: %w", err)
	}
	return NewPubSubAdminClient(realClient), nil
}

// DefaultAckDeadline is used for subscriptions created without an explicit deadline.
const DefaultAckDeadline = 20 * time.Second
