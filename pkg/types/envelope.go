package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// HeaderMessageType is the transport attribute carrying the envelope discriminant.
	HeaderMessageType = "MessageType"
	// PlainTextMessageType marks a message body as an unstructured text line.
	PlainTextMessageType = "String"
)

var (
	ErrMissingMessageType = errors.New("envelope has no message type")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// MessageType is the discriminant classifying an inter-module envelope.
type MessageType string

const (
	MessageTypeGeneric        MessageType = "GENERIC"
	MessageTypeInvoice        MessageType = "INVOICE"
	MessageTypePayment        MessageType = "PAYMENT"
	MessageTypeBillingAccount MessageType = "BILLING_ACCOUNT"
	MessageTypeUsage          MessageType = "USAGE"
)

var knownMessageTypes = []MessageType{
	MessageTypeGeneric,
	MessageTypeInvoice,
	MessageTypePayment,
	MessageTypeBillingAccount,
	MessageTypeUsage,
}

// MessageTypes returns the known discriminants in declaration order.
func MessageTypes() []MessageType {
	out := make([]MessageType, len(knownMessageTypes))
	copy(out, knownMessageTypes)
	return out
}

// ParseMessageType matches code case-insensitively against the known
// discriminants and returns the canonical value.
func ParseMessageType(code string) (MessageType, error) {
	for _, mt := range knownMessageTypes {
		if strings.EqualFold(string(mt), code) {
			return mt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMessageType, code)
}

// Code returns the canonical code written to the MessageType header.
func (m MessageType) Code() string {
	return string(m)
}

func (m MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

func (m *MessageType) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("message type must be a string: %w", err)
	}
	parsed, err := ParseMessageType(code)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Envelope is the unit of communication between modules.
//
// Headers and MessageID are delivery metadata: the bus sets them on receipt and
// Encode never writes them to the wire.
type Envelope struct {
	MessageType MessageType       `json:"pubSubMessageType"`
	Headers     map[string]string `json:"messageHeaders,omitempty"`
	MessageID   string            `json:"messageId,omitempty"`
	Payload     json.RawMessage   `json:"payload,omitempty"`
}

// NewEnvelope builds an outbound envelope, marshalling payload to JSON.
func NewEnvelope(messageType MessageType, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope payload: %w", err)
	}
	return &Envelope{MessageType: messageType, Payload: raw}, nil
}

// DecodeEnvelope parses a structured message body.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.MessageType == "" {
		return nil, ErrMissingMessageType
	}
	return &env, nil
}

// Encode serializes the envelope body without its delivery metadata.
func (e *Envelope) Encode() ([]byte, error) {
	if e.MessageType == "" {
		return nil, ErrMissingMessageType
	}
	body := Envelope{
		MessageType: e.MessageType,
		Payload:     e.Payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// UnmarshalPayload decodes the application payload into v.
func (e *Envelope) UnmarshalPayload(v any) error {
	if len(e.Payload) == 0 {
		return errors.New("envelope has no payload")
	}
	return json.Unmarshal(e.Payload, v)
}
