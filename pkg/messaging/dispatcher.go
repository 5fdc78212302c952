package messaging

import (
	"context"
	"fmt"

	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/illmade-knight/go-billing/pkg/messaging"

// ForwardMode selects where the dispatcher republishes a processed envelope.
type ForwardMode string

const (
	// ForwardFixed republishes every envelope to one configured topic.
	ForwardFixed ForwardMode = "fixed"
	// ForwardRouted republishes to the topics the routing table lists for the envelope's type.
	ForwardRouted ForwardMode = "routed"
)

// DispatcherConfig holds the republish settings of the dispatcher.
type DispatcherConfig struct {
	ForwardMode    ForwardMode
	ForwardTopicID string
}

// DefaultDispatcherConfig forwards everything to GenericTopic.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		ForwardMode:    ForwardFixed,
		ForwardTopicID: "GenericTopic",
	}
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

// WithTracerProvider takes the dispatcher's tracer from tp.
func WithTracerProvider(tp trace.TracerProvider) DispatcherOption {
	return WithTracer(tp.Tracer(tracerName))
}

// Dispatcher classifies, decodes and dispatches inbound bus messages.
// OnReceive holds no state between calls and can be invoked concurrently.
type Dispatcher struct {
	cfg       DispatcherConfig
	processor MessageProcessor
	publisher *EnvelopePublisher
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig, processor MessageProcessor, publisher *EnvelopePublisher, logger zerolog.Logger, opts ...DispatcherOption) (*Dispatcher, error) {
	if processor == nil {
		return nil, fmt.Errorf("message processor cannot be nil")
	}
	if publisher == nil {
		return nil, fmt.Errorf("envelope publisher cannot be nil")
	}
	switch cfg.ForwardMode {
	case ForwardFixed:
		if cfg.ForwardTopicID == "" {
			return nil, fmt.Errorf("forward topic is required when forward mode is %q", ForwardFixed)
		}
	case ForwardRouted:
	default:
		return nil, fmt.Errorf("unknown forward mode %q", cfg.ForwardMode)
	}

	d := &Dispatcher{
		cfg:       cfg,
		processor: processor,
		publisher: publisher,
		tracer:    otel.Tracer(tracerName),
		logger:    logger.With().Str("component", "Dispatcher").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// OnReceive handles one delivered message. The message is acknowledged exactly
// once on return, whatever happened while decoding, processing or republishing.
func (d *Dispatcher) OnReceive(ctx context.Context, msg types.ConsumedMessage) {
	defer d.acknowledge(msg)

	ctx, span := d.tracer.Start(ctx, "billing.dispatch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.message_id", msg.ID),
			attribute.Int("messaging.message_payload_size_bytes", len(msg.Payload)),
		),
	)
	defer span.End()

	messageType, ok := msg.Attributes[types.HeaderMessageType]
	if !ok || messageType == types.PlainTextMessageType {
		span.SetAttributes(attribute.String("billing.message_kind", "text"))
		d.logger.Info().Str("msg_id", msg.ID).Str("data", string(msg.Payload)).Msg("Received normal string message")
		return
	}
	span.SetAttributes(
		attribute.String("billing.message_kind", "envelope"),
		attribute.String("billing.message_type", messageType),
	)

	envelope, err := types.DecodeEnvelope(msg.Payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		d.logger.Error().Err(err).Str("msg_id", msg.ID).Str("message_type", messageType).Msg("Error decoding received message")
		return
	}

	// Delivery metadata always comes from the bus, never from the body.
	envelope.Headers = copyAttributes(msg.Attributes)
	envelope.MessageID = msg.ID

	if err := d.process(ctx, envelope); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "processor failed")
		d.logger.Error().Err(err).Str("msg_id", msg.ID).Str("message_type", envelope.MessageType.Code()).Msg("Message processor failed")
	}

	d.forward(ctx, envelope)
}

// process runs the processor, converting a panic into an error.
func (d *Dispatcher) process(ctx context.Context, envelope *types.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("message processor panicked: %v", r)
		}
	}()
	return d.processor.ProcessMessageReceived(ctx, envelope)
}

func (d *Dispatcher) forward(ctx context.Context, envelope *types.Envelope) {
	switch d.cfg.ForwardMode {
	case ForwardRouted:
		topics := d.publisher.PublishToRoutes(ctx, envelope)
		d.logger.Debug().Str("msg_id", envelope.MessageID).Strs("topics", topics).Msg("Envelope forwarded to routed topics")
	default:
		d.publisher.Publish(ctx, envelope, d.cfg.ForwardTopicID)
	}
}

func (d *Dispatcher) acknowledge(msg types.ConsumedMessage) {
	if msg.Ack == nil {
		d.logger.Warn().Str("msg_id", msg.ID).Msg("Message has no ack handle")
		return
	}
	msg.Ack()
}

func copyAttributes(attributes map[string]string) map[string]string {
	out := make(map[string]string, len(attributes))
	for k, v := range attributes {
		out[k] = v
	}
	return out
}
