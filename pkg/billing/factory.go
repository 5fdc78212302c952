package billing

import (
	"context"

	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/illmade-knight/go-billing/pkg/messaging"
	"github.com/rs/zerolog"
)

// NewProcessorFromConfig builds the module's processor chain. The returned close
// function releases the seen store, if one was created.
func NewProcessorFromConfig(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (messaging.MessageProcessor, func() error, error) {
	base := NewLoggingProcessor(logger)
	if !cfg.Dedup.Enabled {
		return base, func() error { return nil }, nil
	}

	var store SeenStore
	switch cfg.Dedup.Backend {
	case "redis":
		rs, err := NewRedisSeenStore(ctx, cfg.Redis, cfg.Dedup.TTL, logger)
		if err != nil {
			return nil, nil, err
		}
		store = rs
	default:
		store = NewInMemorySeenStore(cfg.Dedup.TTL)
	}

	p, err := NewDeduplicatingProcessor(base, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	logger.Info().Str("backend", cfg.Dedup.Backend).Dur("ttl", cfg.Dedup.TTL).Msg("Message deduplication enabled")
	return p, store.Close, nil
}
