package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessageType(t *testing.T) {
	testCases := []struct {
		name     string
		code     string
		expected MessageType
		wantErr  bool
	}{
		{"canonical", "INVOICE", MessageTypeInvoice, false},
		{"lower case", "invoice", MessageTypeInvoice, false},
		{"mixed case with underscore", "Billing_Account", MessageTypeBillingAccount, false},
		{"unknown", "REFUND", "", true},
		{"empty", "", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mt, err := ParseMessageType(tc.code)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrUnknownMessageType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, mt)
		})
	}
}

func TestEnvelope_EncodeDecodeRoundTrip(t *testing.T) {
	env := &Envelope{
		MessageType: MessageTypeInvoice,
		Payload:     json.RawMessage(`{"invoiceId":"INV-1","amount":1250}`),
	}

	data, err := env.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, env, decoded)
}

func TestEnvelope_EncodeStripsDeliveryMetadata(t *testing.T) {
	env := &Envelope{
		MessageType: MessageTypePayment,
		Headers:     map[string]string{"MessageType": "PAYMENT"},
		MessageID:   "bus-id-1",
		Payload:     json.RawMessage(`{"ok":true}`),
	}

	data, err := env.Encode()
	require.NoError(t, err)

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.NotContains(t, wire, "messageHeaders")
	assert.NotContains(t, wire, "messageId")
	assert.JSONEq(t, `"PAYMENT"`, string(wire["pubSubMessageType"]))

	// The caller's envelope is left untouched.
	assert.Equal(t, "bus-id-1", env.MessageID)
}

func TestDecodeEnvelope_Errors(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`{not json`))
		require.Error(t, err)
	})

	t.Run("missing discriminant", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`{"payload":{"a":1}}`))
		require.ErrorIs(t, err, ErrMissingMessageType)
	})

	t.Run("unknown discriminant", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`{"pubSubMessageType":"REFUND"}`))
		require.ErrorIs(t, err, ErrUnknownMessageType)
	})

	t.Run("case insensitive discriminant", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"pubSubMessageType":"usage"}`))
		require.NoError(t, err)
		assert.Equal(t, MessageTypeUsage, env.MessageType)
	})
}

func TestEnvelope_EncodeRequiresMessageType(t *testing.T) {
	_, err := (&Envelope{}).Encode()
	require.ErrorIs(t, err, ErrMissingMessageType)
}

func TestNewEnvelope_UnmarshalPayload(t *testing.T) {
	type invoice struct {
		ID     string `json:"id"`
		Amount int    `json:"amount"`
	}

	env, err := NewEnvelope(MessageTypeInvoice, invoice{ID: "INV-7", Amount: 99})
	require.NoError(t, err)

	var got invoice
	require.NoError(t, env.UnmarshalPayload(&got))
	assert.Equal(t, invoice{ID: "INV-7", Amount: 99}, got)

	require.Error(t, (&Envelope{MessageType: MessageTypeInvoice}).UnmarshalPayload(&got))
}
