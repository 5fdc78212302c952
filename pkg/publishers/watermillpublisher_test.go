package publishers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWatermillPublisher struct {
	mock.Mock
}

func (m *mockWatermillPublisher) Publish(topic string, messages ...*message.Message) error {
	args := m.Called(topic, messages)
	return args.Error(0)
}

func (m *mockWatermillPublisher) Close() error {
	return m.Called().Error(0)
}

func TestWatermillPublisher_Publish(t *testing.T) {
	goChannel := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = goChannel.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := goChannel.Subscribe(ctx, "GenericTopic")
	require.NoError(t, err)

	publisher, err := NewWatermillPublisher(goChannel, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(ctx, "GenericTopic", []byte(`{"x":1}`), map[string]string{"MessageType": "INVOICE"}))

	select {
	case msg := <-messages:
		assert.Equal(t, `{"x":1}`, string(msg.Payload))
		assert.Equal(t, "INVOICE", msg.Metadata.Get("MessageType"))
		assert.NotEmpty(t, msg.UUID)
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestWatermillPublisher_Errors(t *testing.T) {
	m := &mockWatermillPublisher{}
	m.On("Publish", "T", mock.Anything).Return(errors.New("broker down"))

	publisher, err := NewWatermillPublisher(m, zerolog.Nop())
	require.NoError(t, err)

	err = publisher.Publish(context.Background(), "T", []byte("x"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	require.Error(t, publisher.Publish(context.Background(), "T", nil, nil))
	require.Error(t, publisher.Publish(context.Background(), "", []byte("x"), nil))

	// The transport owns the watermill publisher, so Stop must not close it.
	publisher.Stop()
	m.AssertNotCalled(t, "Close")
	m.AssertNumberOfCalls(t, "Publish", 1)

	_, err = NewWatermillPublisher(nil, zerolog.Nop())
	require.Error(t, err)
}
