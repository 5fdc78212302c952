package billing

import (
	"context"
	"errors"

	"github.com/illmade-knight/go-billing/pkg/messaging"
	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/rs/zerolog"
)

// DeduplicatingProcessor skips envelopes whose bus message id has already been processed.
// Envelopes without an id are always passed through. If the store is unavailable the
// envelope is processed anyway. It only guards the processor: the dispatcher still
// republishes a duplicate to the forward topic.
type DeduplicatingProcessor struct {
	next   messaging.MessageProcessor
	store  SeenStore
	logger zerolog.Logger
}

func NewDeduplicatingProcessor(next messaging.MessageProcessor, store SeenStore, logger zerolog.Logger) (*DeduplicatingProcessor, error) {
	if next == nil {
		return nil, errors.New("next processor cannot be nil")
	}
	if store == nil {
		return nil, errors.New("seen store cannot be nil")
	}
	return &DeduplicatingProcessor{
		next:   next,
		store:  store,
		logger: logger.With().Str("component", "DeduplicatingProcessor").Logger(),
	}, nil
}

func (p *DeduplicatingProcessor) ProcessMessageReceived(ctx context.Context, envelope *types.Envelope) error {
	id := envelope.MessageID
	if id == "" {
		return p.next.ProcessMessageReceived(ctx, envelope)
	}

	first, err := p.store.MarkSeen(ctx, id)
	if err != nil {
		p.logger.Warn().Err(err).Str("message_id", id).Msg("Seen store unavailable, processing without deduplication")
		return p.next.ProcessMessageReceived(ctx, envelope)
	}
	if !first {
		p.logger.Info().Str("message_id", id).Msg("Duplicate message skipped")
		return nil
	}

	if err := p.next.ProcessMessageReceived(ctx, envelope); err != nil {
		// let a redelivery try again
		if forgetErr := p.store.Forget(ctx, id); forgetErr != nil {
			p.logger.Warn().Err(forgetErr).Str("message_id", id).Msg("Failed to clear seen marker after processing error")
		}
		return err
	}
	return nil
}
