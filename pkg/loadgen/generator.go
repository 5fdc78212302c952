package loadgen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/rs/zerolog"
)

// Source is one simulated producer of billing envelopes.
type Source struct {
	ID               string
	MessageType      types.MessageType
	MessageRate      float64
	PayloadGenerator PayloadGenerator
}

// LoadGenerator publishes envelopes for each source at its rate for a fixed duration.
type LoadGenerator struct {
	publisher Publisher
	topicID   string
	sources   []*Source
	logger    zerolog.Logger
	sent      atomic.Int64
}

// NewLoadGenerator creates a LoadGenerator. An empty topicID publishes to the routing table.
func NewLoadGenerator(publisher Publisher, topicID string, sources []*Source, logger zerolog.Logger) *LoadGenerator {
	return &LoadGenerator{
		publisher: publisher,
		topicID:   topicID,
		sources:   sources,
		logger:    logger.With().Str("component", "LoadGenerator").Logger(),
	}
}

// Run blocks until duration elapses or ctx is cancelled and returns the number
// of envelopes published to at least one topic.
func (lg *LoadGenerator) Run(ctx context.Context, duration time.Duration) int64 {
	lg.logger.Info().Int("num_sources", len(lg.sources)).Dur("duration", duration).Msg("Starting load generator")

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	var wg sync.WaitGroup
	for _, source := range lg.sources {
		wg.Add(1)
		go func(s *Source) {
			defer wg.Done()
			lg.runSource(ctx, s)
		}(source)
	}

	wg.Wait()
	sent := lg.sent.Load()
	lg.logger.Info().Int64("sent", sent).Msg("Load generator finished")
	return sent
}

// MaxMessageRate is the highest per-source rate a ticker can represent.
const MaxMessageRate = float64(time.Second)

func (lg *LoadGenerator) runSource(ctx context.Context, source *Source) {
	if source.MessageRate <= 0 {
		lg.logger.Warn().Str("source_id", source.ID).Msg("Source has a message rate of 0, no messages will be sent")
		return
	}
	if source.MessageRate > MaxMessageRate {
		lg.logger.Error().Str("source_id", source.ID).Float64("rate_hz", source.MessageRate).Msg("Source message rate exceeds one per nanosecond, no messages will be sent")
		return
	}

	interval := time.Duration(float64(time.Second) / source.MessageRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lg.logger.Debug().Str("source_id", source.ID).Float64("rate_hz", source.MessageRate).Dur("interval", interval).Msg("Source starting")

	seq := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq++
			envelope, err := lg.envelope(source, seq)
			if err != nil {
				lg.logger.Error().Err(err).Str("source_id", source.ID).Msg("Failed to generate envelope")
				continue
			}
			if topics := lg.publisher.Publish(ctx, envelope, lg.topicID); len(topics) == 0 {
				lg.logger.Debug().Str("source_id", source.ID).Int("seq", seq).Msg("Envelope had no target topics")
				continue
			}
			lg.sent.Add(1)
		}
	}
}

func (lg *LoadGenerator) envelope(source *Source, seq int) (*types.Envelope, error) {
	payload, err := source.PayloadGenerator.GeneratePayload(source, seq)
	if err != nil {
		return nil, err
	}
	return types.NewEnvelope(source.MessageType, payload)
}

// SamplePayload is what DefaultPayloadGenerator produces.
type SamplePayload struct {
	ReferenceID string    `json:"referenceId"`
	SourceID    string    `json:"sourceId"`
	Sequence    int       `json:"sequence"`
	AmountCents int64     `json:"amountCents"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// DefaultPayloadGenerator produces SamplePayload values with a random reference id.
type DefaultPayloadGenerator struct{}

func (DefaultPayloadGenerator) GeneratePayload(source *Source, seq int) (any, error) {
	return SamplePayload{
		ReferenceID: uuid.NewString(),
		SourceID:    source.ID,
		Sequence:    seq,
		AmountCents: int64(seq) * 100,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// NewSources builds n sources of one message type sharing a rate and generator.
func NewSources(n int, messageType types.MessageType, rate float64, generator PayloadGenerator) []*Source {
	sources := make([]*Source, 0, n)
	for i := 0; i < n; i++ {
		sources = append(sources, &Source{
			ID:               fmt.Sprintf("source-%d", i+1),
			MessageType:      messageType,
			MessageRate:      rate,
			PayloadGenerator: generator,
		})
	}
	return sources
}
