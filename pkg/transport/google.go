package transport

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/illmade-knight/go-billing/pkg/consumers"
	"github.com/illmade-knight/go-billing/pkg/messaging"
	"github.com/illmade-knight/go-billing/pkg/publishers"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// GoogleTransport runs the module on Google Cloud Pub/Sub. One client is shared
// by the consumer and the publisher.
type GoogleTransport struct {
	client    *pubsub.Client
	cfg       config.GoogleConfig
	publisher *publishers.GooglePubsubPublisher
	logger    zerolog.Logger
}

// GoogleClientOptions derives the Pub/Sub client options from cfg.
func GoogleClientOptions(cfg config.GoogleConfig, logger zerolog.Logger) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.EmulatorHost != "" {
		// The client library reads PUBSUB_EMULATOR_HOST itself and dials insecurely.
		logger.Info().Str("emulator_host", cfg.EmulatorHost).Msg("Using Pub/Sub emulator.")
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return opts
}

// NewGoogleTransport creates the Pub/Sub client. Extra client options are
// appended after those derived from cfg.
func NewGoogleTransport(ctx context.Context, cfg config.GoogleConfig, logger zerolog.Logger, extraOpts ...option.ClientOption) (*GoogleTransport, error) {
	opts := append(GoogleClientOptions(cfg, logger), extraOpts...)

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub.NewClient: %w", err)
	}

	publisher, err := publishers.NewGooglePubsubPublisher(client, publishers.GetDefaultPublishSettings(), logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info().Str("project_id", cfg.ProjectID).Msg("Google Pub/Sub transport initialized")
	return &GoogleTransport{
		client:    client,
		cfg:       cfg,
		publisher: publisher,
		logger:    logger,
	}, nil
}

func (t *GoogleTransport) Name() string { return config.ImplementationGoogle }

func (t *GoogleTransport) NewConsumer(ctx context.Context, subscriptionID string) (messaging.MessageConsumer, error) {
	return consumers.NewGooglePubsubConsumer(ctx, t.client, consumers.GooglePubsubConsumerConfig{
		SubscriptionID:         subscriptionID,
		MaxOutstandingMessages: t.cfg.MaxOutstandingMessages,
		NumGoroutines:          t.cfg.NumGoroutines,
	}, t.logger)
}

func (t *GoogleTransport) Publisher() messaging.MessagePublisher { return t.publisher }

func (t *GoogleTransport) Close() error {
	if err := t.client.Close(); err != nil {
		return fmt.Errorf("closing pubsub client: %w", err)
	}
	t.logger.Info().Msg("Pub/Sub client closed.")
	return nil
}
