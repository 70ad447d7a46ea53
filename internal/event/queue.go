package event

import "sync"

// Queue is an unbounded FIFO of events. Push never blocks, so a producer can
// never be forced to drop or reorder events because a reader is slow.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Event
	closed bool
}

// NewQueue returns an empty open queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends events in order. It returns false if the queue is closed.
func (q *Queue) Push(evs ...Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, evs...)
	q.cond.Broadcast()
	return true
}

// Pop blocks until an event is available. ok is false once the queue is
// closed and drained.
func (q *Queue) Pop() (ev Event, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	ev = q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return ev, true
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting events. Pending events can still be popped.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Discard closes the queue and drops pending events.
func (q *Queue) Discard() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Forward pops events into out until the queue is drained after Close, or
// until done is closed. out is closed on return.
func (q *Queue) Forward(out chan<- Event, done <-chan struct{}) {
	defer close(out)
	for {
		ev, ok := q.Pop()
		if !ok {
			return
		}
		select {
		case out <- ev:
		case <-done:
			return
		}
	}
}
