package transport

import (
	"context"
	"fmt"

	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/illmade-knight/go-billing/pkg/messaging"
	"github.com/rs/zerolog"
)

// New builds the transport selected by cfg.Implementation.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (messaging.Transport, error) {
	switch cfg.Implementation {
	case config.ImplementationGoogle:
		return NewGoogleTransport(ctx, cfg.Google, logger)
	case config.ImplementationKafka:
		return NewKafkaTransport(cfg.Kafka, cfg.ConsumerGroup(), cfg.ReceiveBuffer, logger)
	case config.ImplementationMemory:
		return NewMemoryTransport(cfg.ReceiveBuffer, logger)
	default:
		return nil, fmt.Errorf("unknown messaging implementation %q", cfg.Implementation)
	}
}
