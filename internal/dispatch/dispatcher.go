package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/platform"
)

// Options configures a Dispatcher.
type Options struct {
	// CloseWhenRequested makes the dispatcher destroy a window as soon as
	// the window system asks for it to be closed. When false the request is
	// only surfaced to subscribers.
	CloseWhenRequested bool
	Logger             *slog.Logger
}

// DefaultOptions closes windows when requested.
func DefaultOptions() Options {
	return Options{CloseWhenRequested: true}
}

// Dispatcher reads a backend's event stream in order, publishes it to its
// subscribers and forwards window requests to the backend.
type Dispatcher struct {
	backend     platform.Backend
	broadcaster *Broadcaster
	ids         event.IDAllocator
	logger      *slog.Logger

	mu                 sync.Mutex
	closeWhenRequested bool
	closing            map[event.WindowID]struct{}
	published          uint64
}

// New creates a dispatcher for backend.
func New(backend platform.Backend, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{
		backend:            backend,
		broadcaster:        NewBroadcaster(),
		logger:             logger,
		closeWhenRequested: opts.CloseWhenRequested,
		closing:            make(map[event.WindowID]struct{}),
	}
}

// Backend returns the backend the dispatcher drives.
func (d *Dispatcher) Backend() platform.Backend {
	return d.backend
}

// Subscribe registers a consumer of the event stream.
func (d *Dispatcher) Subscribe(name string) *Subscription {
	return d.broadcaster.Subscribe(name)
}

// Subscribers returns the number of attached consumers.
func (d *Dispatcher) Subscribers() int {
	return d.broadcaster.Subscribers()
}

// SetCloseWhenRequested changes the close policy for requests that arrive
// from now on.
func (d *Dispatcher) SetCloseWhenRequested(v bool) {
	d.mu.Lock()
	d.closeWhenRequested = v
	d.mu.Unlock()
}

// CloseWhenRequested reports the current close policy.
func (d *Dispatcher) CloseWhenRequested() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeWhenRequested
}

// Published returns the number of events published so far.
func (d *Dispatcher) Published() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.published
}

// Run starts the backend and publishes its events until the stream ends.
// Subscriptions are closed, after draining, when Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	backendErr := make(chan error, 1)
	go func() {
		backendErr <- d.backend.Run(ctx)
	}()

	d.logger.Info("dispatcher started",
		"backend", d.backend.Name(),
		"close_when_requested", d.CloseWhenRequested())

	for ev := range d.backend.Events() {
		d.dispatch(ctx, ev)
	}
	d.broadcaster.Close()

	err := <-backendErr
	d.logger.Info("dispatcher stopped", "events", d.Published())
	if err != nil {
		return fmt.Errorf("backend %s: %w", d.backend.Name(), err)
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, ev event.Event) {
	d.mu.Lock()
	d.published++
	d.mu.Unlock()

	if create, ok := ev.(event.CreateWindow); ok {
		d.ids.Reserve(create.ID)
	}
	d.broadcaster.Publish(ev)

	switch e := ev.(type) {
	case event.WindowCloseRequested:
		if !d.CloseWhenRequested() {
			d.logger.Debug("close requested, left to subscribers", "window_id", uint32(e.ID))
			return
		}
		if !d.markClosing(e.ID) {
			return
		}
		d.logger.Info("closing window on request", "window_id", uint32(e.ID))
		if err := d.backend.Close(ctx, e.ID); err != nil {
			d.unmarkClosing(e.ID)
			d.logger.Warn("close on request failed", "window_id", uint32(e.ID), "error", err)
		}
	case event.WindowClosed:
		d.unmarkClosing(e.ID)
	}
}

// markClosing reports whether id was not already being closed.
func (d *Dispatcher) markClosing(id event.WindowID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.closing[id]; ok {
		return false
	}
	d.closing[id] = struct{}{}
	return true
}

func (d *Dispatcher) unmarkClosing(id event.WindowID) {
	d.mu.Lock()
	delete(d.closing, id)
	d.mu.Unlock()
}

// Request is a create or close request for the backend. Exactly one of
// Create and Close is set.
type Request struct {
	Create *event.Descriptor
	Close  event.WindowID
}

// ErrEmptyRequest is returned for a Request with neither field set.
var ErrEmptyRequest = errors.New("request names neither a descriptor nor a window")

// Request forwards req to the backend. For a create request it returns the
// newly allocated identity; for a close request it returns the closed one.
func (d *Dispatcher) Request(ctx context.Context, req Request) (event.WindowID, error) {
	switch {
	case req.Create != nil && req.Close != 0:
		return 0, fmt.Errorf("request names both a descriptor and window %v", req.Close)
	case req.Create != nil:
		return d.CreateWindow(ctx, *req.Create)
	case req.Close != 0:
		return req.Close, d.CloseWindow(ctx, req.Close)
	default:
		return 0, ErrEmptyRequest
	}
}

// CreateWindow allocates a new identity and asks the backend to open a
// window for it.
func (d *Dispatcher) CreateWindow(ctx context.Context, desc event.Descriptor) (event.WindowID, error) {
	id := d.ids.Next()
	if err := d.backend.CreateWindow(ctx, id, desc); err != nil {
		return 0, fmt.Errorf("create window: %w", err)
	}
	d.logger.Info("window create requested", "window_id", uint32(id), "title", desc.Title)
	return id, nil
}

// CloseWindow destroys a window programmatically. Closing a window that is
// already being closed is a no-op.
func (d *Dispatcher) CloseWindow(ctx context.Context, id event.WindowID) error {
	if !d.markClosing(id) {
		return nil
	}
	if err := d.backend.Close(ctx, id); err != nil {
		d.unmarkClosing(id)
		return fmt.Errorf("close window %v: %w", id, err)
	}
	d.logger.Info("window close requested", "window_id", uint32(id))
	return nil
}
