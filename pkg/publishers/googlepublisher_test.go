package publishers

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func setupTestPubsub(t *testing.T, projectID string, topicIDs ...string) (*pstest.Server, *pubsub.Client) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(ctx, projectID,
		option.WithEndpoint(srv.Addr),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	for _, topicID := range topicIDs {
		_, err := client.CreateTopic(ctx, topicID)
		require.NoError(t, err)
	}
	return srv, client
}

func TestGooglePubsubPublisher_PublishesToMultipleTopics(t *testing.T) {
	srv, client := setupTestPubsub(t, "test-project", "InvoiceTopic", "GenericTopic")

	publisher, err := NewGooglePubsubPublisher(client, GetDefaultPublishSettings(), zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, publisher.Publish(ctx, "InvoiceTopic", []byte(`{"a":1}`), map[string]string{"MessageType": "INVOICE"}))
	require.NoError(t, publisher.Publish(ctx, "GenericTopic", []byte(`{"b":2}`), map[string]string{"MessageType": "GENERIC"}))
	require.NoError(t, publisher.Publish(ctx, "InvoiceTopic", []byte(`{"c":3}`), nil))

	// Stop flushes the batches and waits for the results.
	publisher.Stop()

	msgs := srv.Messages()
	require.Len(t, msgs, 3)

	byTopic := map[string]int{}
	for _, m := range msgs {
		switch string(m.Data) {
		case `{"a":1}`:
			assert.Equal(t, "INVOICE", m.Attributes["MessageType"])
			byTopic["invoice"]++
		case `{"b":2}`:
			assert.Equal(t, "GENERIC", m.Attributes["MessageType"])
			byTopic["generic"]++
		case `{"c":3}`:
			byTopic["invoice"]++
		}
	}
	assert.Equal(t, map[string]int{"invoice": 2, "generic": 1}, byTopic)
}

func TestGooglePubsubPublisher_MissingTopicDoesNotReturnError(t *testing.T) {
	srv, client := setupTestPubsub(t, "test-project")

	publisher, err := NewGooglePubsubPublisher(client, GetDefaultPublishSettings(), zerolog.Nop())
	require.NoError(t, err)

	// The failure surfaces asynchronously in the log, never to the caller.
	err = publisher.Publish(context.Background(), "NoSuchTopic", []byte("x"), nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		publisher.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("publisher did not stop")
	}
	assert.Empty(t, srv.Messages())
}

func TestGooglePubsubPublisher_InvalidArguments(t *testing.T) {
	_, err := NewGooglePubsubPublisher(nil, GetDefaultPublishSettings(), zerolog.Nop())
	require.Error(t, err)

	_, client := setupTestPubsub(t, "test-project", "T")
	publisher, err := NewGooglePubsubPublisher(client, GetDefaultPublishSettings(), zerolog.Nop())
	require.NoError(t, err)
	defer publisher.Stop()

	require.Error(t, publisher.Publish(context.Background(), "T", nil, nil))
	require.Error(t, publisher.Publish(context.Background(), "", []byte("x"), nil))
}
