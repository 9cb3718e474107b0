// Package bus defines the contract with the real-time fan-out transport.
// The durable booking record remains the source of truth; a push on the bus
// is a latency optimization only.
package bus

import "fmt"

// Channel identifies a per-identity fan-out channel, e.g. "provider:42".
type Channel string

// Provider returns the channel for a provider identity.
func Provider(id string) Channel { return Channel("provider:" + id) }

// Customer returns the channel for a customer identity.
func Customer(id string) Channel { return Channel("customer:" + id) }

// Admin returns the channel for an admin identity.
func Admin(id string) Channel { return Channel("admin:" + id) }

func (c Channel) String() string { return string(c) }

// Bus publishes events to identity channels. Delivery is best effort:
// callers log publish errors and continue, they never fail the state
// transition that preceded the publish.
type Bus interface {
	Publish(ch Channel, event any) error
	Close()
}

// NopBus discards all events. It is used when no transport is configured.
type NopBus struct{}

func (NopBus) Publish(Channel, any) error { return nil }
func (NopBus) Close()                     {}

var _ Bus = NopBus{}

// ErrClosed is returned by adapters that are asked to publish after Close.
var ErrClosed = fmt.Errorf("bus closed")
