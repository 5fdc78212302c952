package loadgen

import (
	"context"

	"github.com/illmade-knight/go-billing/pkg/types"
)

// PayloadGenerator creates the payload for the seq-th envelope of a source.
// The returned value is JSON encoded into the envelope.
type PayloadGenerator interface {
	GeneratePayload(source *Source, seq int) (any, error)
}

// Publisher sends an envelope to topicID, or to its configured routes when topicID
// is empty, and returns the topics used.
type Publisher interface {
	Publish(ctx context.Context, envelope *types.Envelope, topicID string) []string
}
