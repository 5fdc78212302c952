package messaging

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/illmade-knight/go-billing/pkg/types"
)

// mockPublishedMessage stores what was passed to mockPublisher.Publish.
type mockPublishedMessage struct {
	TopicID    string
	Payload    []byte
	Attributes map[string]string
}

// mockPublisher is a MessagePublisher that records calls. It is safe for concurrent use.
type mockPublisher struct {
	mu           sync.Mutex
	messages     []mockPublishedMessage
	stopCalled   bool
	publishError error
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{}
}

func (m *mockPublisher) Publish(_ context.Context, topicID string, payload []byte, attributes map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishError != nil {
		return m.publishError
	}
	m.messages = append(m.messages, mockPublishedMessage{TopicID: topicID, Payload: payload, Attributes: attributes})
	return nil
}

func (m *mockPublisher) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalled = true
}

func (m *mockPublisher) Messages() []mockPublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockPublishedMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *mockPublisher) StopCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalled
}

// recordingProcessor stores every envelope it is given.
type recordingProcessor struct {
	mu        sync.Mutex
	received  []*types.Envelope
	err       error
	panicWith any
}

func (p *recordingProcessor) ProcessMessageReceived(_ context.Context, envelope *types.Envelope) error {
	p.mu.Lock()
	p.received = append(p.received, envelope)
	p.mu.Unlock()
	if p.panicWith != nil {
		panic(p.panicWith)
	}
	return p.err
}

func (p *recordingProcessor) Received() []*types.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*types.Envelope, len(p.received))
	copy(out, p.received)
	return out
}

// ackCounter hands out Ack/Nack funcs and counts calls.
type ackCounter struct {
	acks  atomic.Int32
	nacks atomic.Int32
}

func (a *ackCounter) message(id string, payload []byte, attributes map[string]string) types.ConsumedMessage {
	return types.ConsumedMessage{
		ID:         id,
		Payload:    payload,
		Attributes: attributes,
		Ack:        func() { a.acks.Add(1) },
		Nack:       func() { a.nacks.Add(1) },
	}
}
