package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/illmade-knight/go-billing/pkg/routing"
	"github.com/rs/zerolog"
)

type SubscriptionSpec struct {
	Name        string
	Topic       string
	AckDeadline time.Duration
}

// Plan lists the bus resources the module needs.
type Plan struct {
	Topics        []string
	Subscriptions []SubscriptionSpec
}

// PlanFor derives the resources for cfg: the inbound topic and subscription, the
// fixed forward topic and every topic the module's routes publish to.
func PlanFor(cfg *config.Config, resolver *routing.Resolver, inboundTopic string) Plan {
	seen := make(map[string]bool)
	var topics []string
	add := func(topic string) {
		if topic != "" && !seen[topic] {
			seen[topic] = true
			topics = append(topics, topic)
		}
	}

	add(inboundTopic)
	if cfg.ForwardMode == "fixed" {
		add(cfg.ForwardTopicID)
	}
	for _, route := range resolver.Routes() {
		for _, topic := range route.Topics {
			add(topic)
		}
	}

	return Plan{
		Topics: topics,
		Subscriptions: []SubscriptionSpec{
			{Name: cfg.SubscriptionID, Topic: inboundTopic, AckDeadline: DefaultAckDeadline},
		},
	}
}

// Manager handles the creation and verification of topics and subscriptions.
type Manager struct {
	client AdminClient
	logger zerolog.Logger
}

func NewManager(client AdminClient, logger zerolog.Logger) (*Manager, error) {
	if client == nil {
		return nil, errors.New("admin client cannot be nil")
	}
	return &Manager{
		client: client,
		logger: logger.With().Str("component", "ProvisionManager").Logger(),
	}, nil
}

// Setup creates any topics and subscriptions in plan that do not exist yet.
func (m *Manager) Setup(ctx context.Context, plan Plan) error {
	if err := m.setupTopics(ctx, plan.Topics); err != nil {
		return err
	}
	if err := m.setupSubscriptions(ctx, plan.Subscriptions); err != nil {
		return err
	}
	m.logger.Info().Int("topics", len(plan.Topics)).Int("subscriptions", len(plan.Subscriptions)).Msg("Bus setup completed successfully")
	return nil
}

func (m *Manager) setupTopics(ctx context.Context, topics []string) error {
	for _, topicID := range topics {
		exists, err := m.client.Topic(topicID).Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check existence of topic '%s': %w", topicID, err)
		}
		if exists {
			m.logger.Info().Str("topic_id", topicID).Msg("Topic already exists")
			continue
		}
		created, err := m.client.CreateTopic(ctx, topicID)
		if err != nil {
			return fmt.Errorf("failed to create topic '%s': %w", topicID, err)
		}
		m.logger.Info().Str("topic_id", created.ID()).Msg("Topic created successfully")
	}
	return nil
}

func (m *Manager) setupSubscriptions(ctx context.Context, subs []SubscriptionSpec) error {
	for _, spec := range subs {
		if spec.Name == "" || spec.Topic == "" {
			return fmt.Errorf("subscription '%s' needs both a name and a topic", spec.Name)
		}
		exists, err := m.client.Subscription(spec.Name).Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check existence of subscription '%s': %w", spec.Name, err)
		}
		if exists {
			m.logger.Info().Str("subscription_id", spec.Name).Msg("Subscription already exists")
			continue
		}
		created, err := m.client.CreateSubscription(ctx, spec)
		if err != nil {
			return fmt.Errorf("failed to create subscription '%s' for topic '%s': %w", spec.Name, spec.Topic, err)
		}
		m.logger.Info().Str("subscription_id", created.ID()).Str("topic_id", spec.Topic).Msg("Subscription created successfully")
	}
	return nil
}

// Verify reports every resource in plan that does not exist.
func (m *Manager) Verify(ctx context.Context, plan Plan) error {
	var missing []string
	for _, topicID := range plan.Topics {
		exists, err := m.client.Topic(topicID).Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check existence of topic '%s': %w", topicID, err)
		}
		if !exists {
			missing = append(missing, "topic "+topicID)
		}
	}
	for _, spec := range plan.Subscriptions {
		exists, err := m.client.Subscription(spec.Name).Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check existence of subscription '%s': %w", spec.Name, err)
		}
		if !exists {
			missing = append(missing, "subscription "+spec.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing bus resources: %s", strings.Join(missing, ", "))
	}
	return nil
}
