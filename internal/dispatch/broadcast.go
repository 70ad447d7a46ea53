// Package dispatch fans the backend's ordered event stream out to any number
// of consumers and folds each consumer's replay through its own lifecycle
// model.
package dispatch

import (
	"sync"

	"github.com/1broseidon/winstate/internal/event"
)

// Broadcaster gives every subscriber its own ordered, exactly-once replay of
// the published events. Each subscriber has an unbounded queue, so a slow
// subscriber never blocks the producer or the other subscribers.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewBroadcaster returns a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

// Subscription is one consumer's replay of the stream.
type Subscription struct {
	Name string

	b      *Broadcaster
	queue  *event.Queue
	events chan event.Event
	done   chan struct{}
	once   sync.Once
}

// Subscribe registers a consumer. It sees only events published after
// Subscribe returns. Subscribing to a closed broadcaster yields a
// subscription whose channel is already closed.
func (b *Broadcaster) Subscribe(name string) *Subscription {
	s := &Subscription{
		Name:   name,
		b:      b,
		queue:  event.NewQueue(),
		events: make(chan event.Event),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		s.queue.Close()
	} else {
		b.subs[s] = struct{}{}
	}
	b.mu.Unlock()

	go s.queue.Forward(s.events, s.done)
	return s
}

// Publish appends ev to every subscriber's queue.
func (b *Broadcaster) Publish(ev event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for s := range b.subs {
		s.queue.Push(ev)
	}
}

// Subscribers returns the number of open subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription after its pending events are delivered.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.queue.Close()
	}
	b.subs = nil
}

// Events returns the subscriber's ordered stream. It is closed when the
// broadcaster closes or the subscription is closed.
func (s *Subscription) Events() <-chan event.Event {
	return s.events
}

// Close detaches the subscriber and drops its pending events.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.b.mu.Lock()
		delete(s.b.subs, s)
		s.b.mu.Unlock()

		close(s.done)
		s.queue.Discard()
	})
}
