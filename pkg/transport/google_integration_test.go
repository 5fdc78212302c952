//go:build integration

package transport

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/illmade-knight/go-billing/pkg/config"
	"github.com/illmade-knight/go-billing/pkg/consumers"
	"github.com/illmade-knight/go-billing/pkg/helpers/emulators"
	"github.com/illmade-knight/go-billing/pkg/provision"
	"github.com/illmade-knight/go-billing/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleTransport_Emulator(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()
	const projectID = "billing-it"
	logger := zerolog.New(zerolog.NewTestWriter(t))

	opts := emulators.SetupPubsubEmulator(t, ctx, emulators.GetDefaultPubsubImageContainer(projectID), provision.Plan{
		Topics: []string{"BillingInbound", "GenericTopic"},
		Subscriptions: []provision.SubscriptionSpec{
			{Name: "BillingGenericSub", Topic: "BillingInbound"},
			{Name: "GenericVerifierSub", Topic: "GenericTopic"},
		},
	})

	tr, err := NewGoogleTransport(ctx, config.GoogleConfig{ProjectID: projectID, MaxOutstandingMessages: 10, NumGoroutines: 1}, logger, opts...)
	require.NoError(t, err)

	handler, received := buildHandler(t, tr)
	require.NoError(t, handler.SubscribeToSubscription(ctx, "BillingGenericSub"))

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	require.NoError(t, err)
	defer client.Close()

	verifier, err := consumers.NewGooglePubsubConsumer(ctx, client, consumers.GooglePubsubConsumerConfig{
		SubscriptionID:         "GenericVerifierSub",
		MaxOutstandingMessages: 10,
		NumGoroutines:          1,
	}, logger)
	require.NoError(t, err)
	require.NoError(t, verifier.Start(ctx))
	defer verifier.Stop()

	inbound := client.Topic("BillingInbound")
	defer inbound.Stop()
	busID, err := inbound.Publish(ctx, &pubsub.Message{
		Data:       []byte(invoiceBody),
		Attributes: map[string]string{types.HeaderMessageType: "INVOICE"},
	}).Get(ctx)
	require.NoError(t, err)

	select {
	case env := <-received:
		assert.Equal(t, busID, env.MessageID)
		assert.Equal(t, types.MessageTypeInvoice, env.MessageType)
	case <-ctx.Done():
		t.Fatal("processor was not called")
	}

	select {
	case msg := <-verifier.Messages():
		assert.Equal(t, map[string]string{types.HeaderMessageType: "INVOICE"}, msg.Attributes)
		assert.JSONEq(t, invoiceBody, string(msg.Payload))
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("forwarded envelope not received")
	}

	handler.Stop()
}
