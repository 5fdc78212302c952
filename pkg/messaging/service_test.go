package messaging

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/illmade-knight/go-billing/pkg/consumers"
	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionService_DispatchesAllMessages(t *testing.T) {
	processor := &recordingProcessor{}
	d, pub := setupDispatcher(t, DefaultDispatcherConfig(), processor)
	consumer := consumers.NewMockMessageConsumer(10)

	service, err := NewSubscriptionService(3, consumer, d, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, service.Start())

	acks := &ackCounter{}
	consumer.Push(acks.message("a", []byte("hello"), nil))
	consumer.Push(acks.message("b", []byte(invoiceBody), map[string]string{types.HeaderMessageType: "INVOICE"}))
	consumer.Push(acks.message("c", []byte(`{broken`), map[string]string{types.HeaderMessageType: "INVOICE"}))

	require.Eventually(t, func() bool {
		return acks.acks.Load() == 3
	}, 5*time.Second, 10*time.Millisecond)

	service.Stop()

	assert.Len(t, processor.Received(), 1)
	assert.Len(t, pub.Messages(), 1)
	assert.Equal(t, 1, consumer.StartCount())
}

func TestSubscriptionService_StopSettlesEveryMessage(t *testing.T) {
	const total = 10
	entered := make(chan struct{}, total)
	release := make(chan struct{})
	processor := ProcessorFunc(func(_ context.Context, _ *types.Envelope) error {
		entered <- struct{}{}
		<-release
		return nil
	})
	d, _ := setupDispatcher(t, DefaultDispatcherConfig(), processor)
	consumer := consumers.NewMockMessageConsumer(total)

	service, err := NewSubscriptionService(1, consumer, d, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, service.Start())

	acks := &ackCounter{}
	attrs := map[string]string{types.HeaderMessageType: "INVOICE"}
	for i := 0; i < total; i++ {
		consumer.Push(acks.message(fmt.Sprintf("m-%d", i), []byte(invoiceBody), attrs))
	}

	// The single worker is now parked inside the processor with the rest buffered.
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("processor was never invoked")
	}

	stopped := make(chan struct{})
	go func() {
		service.Stop()
		close(stopped)
	}()

	select {
	case <-consumer.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("consumer was not stopped")
	}
	close(release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	assert.GreaterOrEqual(t, acks.acks.Load(), int32(1))
	assert.Equal(t, int32(total), acks.acks.Load()+acks.nacks.Load(), "every message must be acked or nacked")
}

// stuckConsumer never reports that it has stopped.
type stuckConsumer struct {
	msgs chan types.ConsumedMessage
}

func (c *stuckConsumer) Messages() <-chan types.ConsumedMessage { return c.msgs }
func (c *stuckConsumer) Start(context.Context) error            { return nil }
func (c *stuckConsumer) Stop() error                            { return nil }
func (c *stuckConsumer) Done() <-chan struct{}                  { return make(chan struct{}) }

func TestSubscriptionService_StopDoesNotHangOnStuckConsumer(t *testing.T) {
	d, _ := setupDispatcher(t, DefaultDispatcherConfig(), &recordingProcessor{})
	consumer := &stuckConsumer{msgs: make(chan types.ConsumedMessage, 2)}

	service, err := NewSubscriptionService(1, consumer, d, zerolog.Nop())
	require.NoError(t, err)
	service.stopTimeout = 50 * time.Millisecond
	require.NoError(t, service.Start())

	stopped := make(chan struct{})
	go func() {
		service.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked on a consumer that never finished")
	}
}

func TestSubscriptionService_StartError(t *testing.T) {
	d, _ := setupDispatcher(t, DefaultDispatcherConfig(), &recordingProcessor{})
	consumer := consumers.NewMockMessageConsumer(1)
	consumer.SetStartError(errors.New("subscription gone"))

	service, err := NewSubscriptionService(1, consumer, d, zerolog.Nop())
	require.NoError(t, err)

	err = service.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscription gone")
}

func TestNewSubscriptionService_Validation(t *testing.T) {
	d, _ := setupDispatcher(t, DefaultDispatcherConfig(), &recordingProcessor{})

	_, err := NewSubscriptionService(1, nil, d, zerolog.Nop())
	require.Error(t, err)

	_, err = NewSubscriptionService(1, consumers.NewMockMessageConsumer(1), nil, zerolog.Nop())
	require.Error(t, err)

	service, err := NewSubscriptionService(0, consumers.NewMockMessageConsumer(1), d, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 5, service.numWorkers)
}
