package mqtt

import (
	"fmt"
	"sync"

	"github.com/taskhive/dispatch/core/bus"
)

// MockBus is a simple bus used in tests. It records every published event
// per channel and can be configured to fail specific channels.
type MockBus struct {
	mu           sync.Mutex
	Events       map[bus.Channel][]any
	FailChannels map[bus.Channel]bool
	closed       bool
}

// NewMockBus creates a new MockBus.
func NewMockBus() *MockBus {
	return &MockBus{
		Events:       make(map[bus.Channel][]any),
		FailChannels: make(map[bus.Channel]bool),
	}
}

// Publish records the event or returns an error if configured to fail.
func (m *MockBus) Publish(ch bus.Channel, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return bus.ErrClosed
	}
	if m.FailChannels[ch] {
		return fmt.Errorf("publish to %s failed", ch)
	}
	m.Events[ch] = append(m.Events[ch], event)
	return nil
}

// Sent returns a copy of the events published to the channel.
func (m *MockBus) Sent(ch bus.Channel) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.Events[ch]...)
}

// Channels returns the channels that received at least one event.
func (m *MockBus) Channels() []bus.Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	chs := make([]bus.Channel, 0, len(m.Events))
	for ch := range m.Events {
		chs = append(chs, ch)
	}
	return chs
}

// Close marks the bus closed; further publishes fail.
func (m *MockBus) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

var _ bus.Bus = (*MockBus)(nil)
