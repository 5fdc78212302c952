package loadgen_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/illmade-knight/go-billing/pkg/loadgen"
	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher is a mock implementation of the Publisher interface.
type MockPublisher struct {
	mock.Mock
	mu        sync.Mutex
	envelopes []*types.Envelope
}

func (m *MockPublisher) Publish(ctx context.Context, envelope *types.Envelope, topicID string) []string {
	m.mu.Lock()
	m.envelopes = append(m.envelopes, envelope)
	m.mu.Unlock()
	args := m.Called(ctx, envelope, topicID)
	return args.Get(0).([]string)
}

func (m *MockPublisher) Envelopes() []*types.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*types.Envelope(nil), m.envelopes...)
}

type failingGenerator struct{}

func (failingGenerator) GeneratePayload(_ *loadgen.Source, _ int) (any, error) {
	return nil, errors.New("no payload")
}

func TestLoadGenerator_Run(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("Successful run", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("Publish", mock.Anything, mock.Anything, "InvoiceTopic").Return([]string{"InvoiceTopic"})

		sources := loadgen.NewSources(2, types.MessageTypeInvoice, 20, loadgen.DefaultPayloadGenerator{})
		lg := loadgen.NewLoadGenerator(pub, "InvoiceTopic", sources, logger)
		sent := lg.Run(context.Background(), 300*time.Millisecond)

		envelopes := pub.Envelopes()
		assert.Greater(t, sent, int64(0))
		assert.Equal(t, int(sent), len(envelopes))

		first := envelopes[0]
		assert.Equal(t, types.MessageTypeInvoice, first.MessageType)
		var payload loadgen.SamplePayload
		require.NoError(t, json.Unmarshal(first.Payload, &payload))
		assert.NotEmpty(t, payload.ReferenceID)
		assert.Contains(t, []string{"source-1", "source-2"}, payload.SourceID)
	})

	t.Run("Source with zero message rate", func(t *testing.T) {
		pub := new(MockPublisher)
		sources := loadgen.NewSources(1, types.MessageTypePayment, 0, loadgen.DefaultPayloadGenerator{})

		sent := loadgen.NewLoadGenerator(pub, "", sources, logger).Run(context.Background(), 100*time.Millisecond)

		assert.Zero(t, sent)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Payload errors are skipped", func(t *testing.T) {
		pub := new(MockPublisher)
		sources := loadgen.NewSources(1, types.MessageTypePayment, 50, failingGenerator{})

		sent := loadgen.NewLoadGenerator(pub, "", sources, logger).Run(context.Background(), 100*time.Millisecond)

		assert.Zero(t, sent)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Context cancellation stops sources", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("Publish", mock.Anything, mock.Anything, "").Return([]string{}).Maybe()
		sources := loadgen.NewSources(1, types.MessageTypeUsage, 100, loadgen.DefaultPayloadGenerator{})

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(50*time.Millisecond, cancel)

		start := time.Now()
		loadgen.NewLoadGenerator(pub, "", sources, logger).Run(ctx, 5*time.Second)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("Envelopes without target topics are not counted", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("Publish", mock.Anything, mock.Anything, "").Return([]string{})
		sources := loadgen.NewSources(1, types.MessageTypePayment, 50, loadgen.DefaultPayloadGenerator{})

		sent := loadgen.NewLoadGenerator(pub, "", sources, logger).Run(context.Background(), 200*time.Millisecond)

		assert.Zero(t, sent)
		assert.NotEmpty(t, pub.Envelopes(), "publish is still attempted")
	})

	t.Run("Rates beyond one per nanosecond are rejected", func(t *testing.T) {
		pub := new(MockPublisher)
		sources := loadgen.NewSources(1, types.MessageTypeInvoice, 2e9, loadgen.DefaultPayloadGenerator{})

		require.NotPanics(t, func() {
			sent := loadgen.NewLoadGenerator(pub, "InvoiceTopic", sources, logger).Run(context.Background(), 50*time.Millisecond)
			assert.Zero(t, sent)
		})
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})
}
