package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/1broseidon/winstate/internal/event"
)

// Scripted is an in-memory backend. Requests produce the same event sequence
// a real window system would; Inject lets callers play OS-originated events
// such as resizes, focus changes or typed text.
type Scripted struct {
	queue  *event.Queue
	events chan event.Event

	mu      sync.Mutex
	windows map[event.WindowID]event.Descriptor
	closed  map[event.WindowID]struct{}
	stopped bool

	startOnce sync.Once
	done      chan struct{}
}

var _ Backend = (*Scripted)(nil)

// NewScripted returns a scripted backend with no windows.
func NewScripted() *Scripted {
	return &Scripted{
		queue:   event.NewQueue(),
		events:  make(chan event.Event),
		windows: make(map[event.WindowID]event.Descriptor),
		closed:  make(map[event.WindowID]struct{}),
		done:    make(chan struct{}),
	}
}

func (s *Scripted) Name() string { return "scripted" }

// Events returns the ordered event stream.
func (s *Scripted) Events() <-chan event.Event {
	return s.events
}

// Run delivers queued events until ctx is cancelled or Stop has drained the
// queue. Events already queued when ctx ends are dropped. The event stream is
// closed before Run returns.
func (s *Scripted) Run(ctx context.Context) error {
	started := false
	s.startOnce.Do(func() { started = true })
	if !started {
		return fmt.Errorf("scripted backend already running")
	}

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		s.queue.Forward(s.events, s.done)
	}()

	select {
	case <-ctx.Done():
	case <-forwarded:
	}
	s.stop()
	<-forwarded
	return nil
}

// Stop ends the event stream after the already queued events are delivered.
// Run returns once they have been.
func (s *Scripted) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.queue.Close()
}

func (s *Scripted) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.queue.Discard()
}

// CreateWindow emits CreateWindow, WindowCreated and the initial geometry.
func (s *Scripted) CreateWindow(_ context.Context, id event.WindowID, desc event.Descriptor) error {
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if _, ok := s.windows[id]; ok {
		return fmt.Errorf("window %v: %w", id, ErrWindowExists)
	}
	if _, ok := s.closed[id]; ok {
		return fmt.Errorf("window %v: %w", id, ErrWindowExists)
	}
	s.windows[id] = desc.Clone()

	evs := []event.Event{
		event.CreateWindow{ID: id, Descriptor: desc.Clone()},
		event.WindowCreated{ID: id},
		event.WindowResized{ID: id, Width: desc.Width, Height: desc.Height},
	}
	if desc.Position != nil {
		evs = append(evs, event.WindowMoved{ID: id, Position: *desc.Position})
	}
	s.queue.Push(evs...)
	return nil
}

// Close destroys a window and emits WindowClosed.
func (s *Scripted) Close(_ context.Context, id event.WindowID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if _, ok := s.windows[id]; !ok {
		return fmt.Errorf("window %v: %w", id, ErrUnknownWindow)
	}
	delete(s.windows, id)
	s.closed[id] = struct{}{}
	s.queue.Push(event.WindowClosed{ID: id})
	return nil
}

// RequestClose simulates the user clicking the close button.
func (s *Scripted) RequestClose(id event.WindowID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.windows[id]; !ok {
		return fmt.Errorf("window %v: %w", id, ErrUnknownWindow)
	}
	s.queue.Push(event.WindowCloseRequested{ID: id})
	return nil
}

// Type emits one ReceivedCharacter per rune of text.
func (s *Scripted) Type(id event.WindowID, text string) {
	s.queue.Push(event.Characters(id, text)...)
}

// Inject emits events verbatim, without checking them against the
// lifecycle. Tests use it to play a misbehaving window system.
func (s *Scripted) Inject(evs ...event.Event) {
	s.queue.Push(evs...)
}

// Windows lists the identities of windows that have not been closed.
func (s *Scripted) Windows(context.Context) ([]event.WindowID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]event.WindowID, 0, len(s.windows))
	for id := range s.windows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
