package scheduler

import (
	"sync"
	"time"

	"urldigest/app/task"
)

// Event describes one task state transition.
type Event struct {
	TaskID    string
	OldState  task.State
	NewState  task.State
	Timestamp time.Time
}

const subscriberBuffer = 64

// Bus distributes transition events to subscribers. Publish never blocks the
// caller: each subscriber has its own buffered channel and the oldest event
// is dropped on overflow. Dropped events are recoverable from a registry
// snapshot, so delivery is best-effort by contract.
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

type Subscription struct {
	bus *Bus
	ch  chan Event
}

// Events returns the subscriber's channel. It is closed when the
// subscription is closed or the bus shuts down.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[*Subscription]struct{}),
	}
}

func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		bus: b,
		ch:  make(chan Event, subscriberBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for sub := range b.subs {
		offer(sub.ch, ev)
	}
}

// offer sends ev into ch, dropping the oldest buffered event until the send
// succeeds. Publishers hold the bus lock, so nobody else writes to ch here.
func offer(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Close closes all subscriber channels. Further Publish calls are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
	}
}
