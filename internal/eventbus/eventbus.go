// Package eventbus provides a small in-process publish/subscribe bus used to
// observe dispatch activity without coupling components together.
package eventbus

import "sync"

// Event is an arbitrary value passed on the bus.
type Event interface{}

// EventBus fans events out to subscribers.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

const subscriberBuffer = 16

// Bus is the default EventBus implementation. Subscribers are keyed so that
// Unsubscribe does not scan a slice under the publish lock.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
	index  map[<-chan Event]int
	closed bool
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[int]chan Event), index: make(map[<-chan Event]int)}
}

// Publish delivers e to every subscriber without blocking. A subscriber
// whose buffer is full misses the event.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its receive channel.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.nextID++
	b.subs[b.nextID] = ch
	b.index[ch] = b.nextID
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.index[sub]
	if !ok {
		return
	}
	ch := b.subs[id]
	delete(b.subs, id)
	delete(b.index, sub)
	if !b.closed {
		close(ch)
	}
}

// Close closes all subscriber channels. Further publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = map[int]chan Event{}
	b.index = map[<-chan Event]int{}
}
