package consumers

import (
	"context"
	"sync"

	"github.com/illmade-knight/go-billing/pkg/types"
)

// ====================================================================================
// This file contains mocks for the consumer contract. They are intended for use
// in unit tests of services that depend on a message source.
// ====================================================================================

// MockMessageConsumer simulates a message source in unit tests.
type MockMessageConsumer struct {
	msgChan    chan types.ConsumedMessage
	doneChan   chan struct{}
	stopOnce   sync.Once
	startErr   error // Error to be returned by Start()
	startMu    sync.Mutex
	startCount int
	stopCount  int
}

// NewMockMessageConsumer creates a new mock consumer with a buffered channel.
func NewMockMessageConsumer(bufferSize int) *MockMessageConsumer {
	return &MockMessageConsumer{
		msgChan:  make(chan types.ConsumedMessage, bufferSize),
		doneChan: make(chan struct{}),
	}
}

// Messages returns the read-only channel for consuming messages.
func (m *MockMessageConsumer) Messages() <-chan types.ConsumedMessage {
	return m.msgChan
}

// Start simulates the startup of a real consumer.
func (m *MockMessageConsumer) Start(ctx context.Context) error {
	m.startMu.Lock()
	defer m.startMu.Unlock()
	m.startCount++
	if m.startErr != nil {
		return m.startErr
	}
	go func() {
		<-ctx.Done()
		m.Stop()
	}()
	return nil
}

// Stop closes the message and done channels.
func (m *MockMessageConsumer) Stop() error {
	m.stopOnce.Do(func() {
		m.startMu.Lock()
		defer m.startMu.Unlock()
		m.stopCount++
		close(m.msgChan)
		close(m.doneChan)
	})
	return nil
}

// Done returns the channel that signals when the consumer has fully stopped.
func (m *MockMessageConsumer) Done() <-chan struct{} {
	return m.doneChan
}

// Push injects a message into the mock consumer's channel.
func (m *MockMessageConsumer) Push(msg types.ConsumedMessage) {
	m.msgChan <- msg
}

// SetStartError configures the mock to return an error on Start().
func (m *MockMessageConsumer) SetStartError(err error) {
	m.startMu.Lock()
	defer m.startMu.Unlock()
	m.startErr = err
}

// StartCount reports how many times Start was called.
func (m *MockMessageConsumer) StartCount() int {
	m.startMu.Lock()
	defer m.startMu.Unlock()
	return m.startCount
}
