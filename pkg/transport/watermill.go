package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/illmade-knight/go-billing/pkg/consumers"
	"github.com/illmade-knight/go-billing/pkg/messaging"
	"github.com/illmade-knight/go-billing/pkg/publishers"
	"github.com/rs/zerolog"
)

// WatermillTransport runs the module on a watermill Pub/Sub. Subscription
// names are used directly as watermill topics.
type WatermillTransport struct {
	name       string
	subscriber message.Subscriber
	// closers run in order on Close.
	closers    []func() error
	publisher  *publishers.WatermillPublisher
	bufferSize int
	logger     zerolog.Logger
}

// NewMemoryTransport creates an in-process bus. Publisher and subscriber share
// one channel, so everything published is visible to local subscriptions.
func NewMemoryTransport(bufferSize int, logger zerolog.Logger) (*WatermillTransport, error) {
	goChannel := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(bufferSize),
	}, NewZerologAdapter(logger))

	publisher, err := publishers.NewWatermillPublisher(goChannel, logger)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("In-memory transport initialized")
	return &WatermillTransport{
		name:       config.ImplementationMemory,
		subscriber: goChannel,
		closers:    []func() error{goChannel.Close},
		publisher:  publisher,
		bufferSize: bufferSize,
		logger:     logger,
	}, nil
}

// NewKafkaTransport creates a Kafka-backed bus. consumerGroup identifies this
// module to the brokers.
func NewKafkaTransport(cfg config.KafkaConfig, consumerGroup string, bufferSize int, logger zerolog.Logger) (*WatermillTransport, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka transport needs at least one broker")
	}
	if consumerGroup == "" {
		return nil, errors.New("kafka transport needs a consumer group")
	}
	wmLogger := NewZerologAdapter(logger.With().Str("component", "kafka").Logger())

	pubSarama := kafka.DefaultSaramaSyncPublisherConfig()
	pubSarama.ClientID = cfg.ClientID
	kafkaPublisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               cfg.Brokers,
		Marshaler:             kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: pubSarama,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}

	subSarama := kafka.DefaultSaramaSubscriberConfig()
	subSarama.ClientID = cfg.ClientID
	subSarama.Consumer.Offsets.Initial = sarama.OffsetOldest
	kafkaSubscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               cfg.Brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		ConsumerGroup:         consumerGroup,
		OverwriteSaramaConfig: subSarama,
	}, wmLogger)
	if err != nil {
		_ = kafkaPublisher.Close()
		return nil, fmt.Errorf("create kafka subscriber: %w", err)
	}

	publisher, err := publishers.NewWatermillPublisher(kafkaPublisher, logger)
	if err != nil {
		_ = kafkaPublisher.Close()
		_ = kafkaSubscriber.Close()
		return nil, err
	}
	logger.Info().Strs("brokers", cfg.Brokers).Str("consumer_group", consumerGroup).Msg("Kafka transport initialized")
	return &WatermillTransport{
		name:       config.ImplementationKafka,
		subscriber: kafkaSubscriber,
		closers:    []func() error{kafkaSubscriber.Close, kafkaPublisher.Close},
		publisher:  publisher,
		bufferSize: bufferSize,
		logger:     logger,
	}, nil
}

func (t *WatermillTransport) Name() string { return t.name }

func (t *WatermillTransport) NewConsumer(_ context.Context, subscriptionID string) (messaging.MessageConsumer, error) {
	return consumers.NewWatermillConsumer(t.subscriber, subscriptionID, t.bufferSize, t.logger)
}

func (t *WatermillTransport) Publisher() messaging.MessagePublisher { return t.publisher }

func (t *WatermillTransport) Close() error {
	var errs []error
	for _, closeFn := range t.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
