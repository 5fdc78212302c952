package billing

import (
	"context"

	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/rs/zerolog"
)

// LoggingProcessor is the default billing processor: it records each envelope it receives.
type LoggingProcessor struct {
	logger zerolog.Logger
}

func NewLoggingProcessor(logger zerolog.Logger) *LoggingProcessor {
	return &LoggingProcessor{logger: logger.With().Str("component", "LoggingProcessor").Logger()}
}

// ProcessMessageReceived logs the envelope's type, id and payload size.
func (p *LoggingProcessor) ProcessMessageReceived(_ context.Context, envelope *types.Envelope) error {
	p.logger.Info().
		Str("message_type", envelope.MessageType.Code()).
		Str("message_id", envelope.MessageID).
		Int("payload_bytes", len(envelope.Payload)).
		Msg("Billing message received")
	return nil
}
