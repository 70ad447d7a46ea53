package dispatch

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/lifecycle"
	"github.com/1broseidon/winstate/internal/platform"
)

// countingBackend records programmatic closes.
type countingBackend struct {
	*platform.Scripted

	mu     sync.Mutex
	closes map[event.WindowID]int
}

func newCountingBackend() *countingBackend {
	return &countingBackend{
		Scripted: platform.NewScripted(),
		closes:   make(map[event.WindowID]int),
	}
}

func (c *countingBackend) Close(ctx context.Context, id event.WindowID) error {
	c.mu.Lock()
	c.closes[id]++
	c.mu.Unlock()
	return c.Scripted.Close(ctx, id)
}

func (c *countingBackend) closeCount(id event.WindowID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes[id]
}

// flakyBackend fails the first programmatic close.
type flakyBackend struct {
	*countingBackend
	failed bool
}

var errCloseFailed = errors.New("close failed")

func (f *flakyBackend) Close(ctx context.Context, id event.WindowID) error {
	f.mu.Lock()
	first := !f.failed
	if first {
		f.failed = true
		f.closes[id]++
	}
	f.mu.Unlock()
	if first {
		return errCloseFailed
	}
	return f.countingBackend.Close(ctx, id)
}

func next(t *testing.T, sub *Subscription) event.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

// until reads events up to and including the first one of kind k.
func until(t *testing.T, sub *Subscription, k event.Kind) []event.Event {
	t.Helper()
	var out []event.Event
	for {
		ev := next(t, sub)
		out = append(out, ev)
		if ev.Kind() == k {
			return out
		}
	}
}

func startDispatcher(t *testing.T, b platform.Backend, closeWhenRequested bool) (*Dispatcher, *Subscription) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	d := New(b, Options{CloseWhenRequested: closeWhenRequested})
	sub := d.Subscribe("test")

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("dispatcher did not stop")
		}
	})
	return d, sub
}

func TestBroadcaster_IdenticalOrderedReplay(t *testing.T) {
	b := NewBroadcaster()
	first := b.Subscribe("first")
	second := b.Subscribe("second")

	evs := append([]event.Event{event.CreateWindow{ID: 1, Descriptor: event.DefaultDescriptor()}, event.WindowCreated{ID: 1}},
		event.Characters(1, "hello")...)
	evs = append(evs, event.RequestRedraw{})
	for _, ev := range evs {
		b.Publish(ev)
	}
	b.Close()

	for _, sub := range []*Subscription{first, second} {
		var got []event.Event
		for ev := range sub.Events() {
			got = append(got, ev)
		}
		if !reflect.DeepEqual(got, evs) {
			t.Fatalf("%s got %v, want %v", sub.Name, got, evs)
		}
	}
}

func TestBroadcaster_LateSubscriberSeesOnlyLaterEvents(t *testing.T) {
	b := NewBroadcaster()
	b.Publish(event.RequestRedraw{})

	sub := b.Subscribe("late")
	b.Publish(event.WindowCreated{ID: 4})
	b.Close()

	var got []event.Event
	for ev := range sub.Events() {
		got = append(got, ev)
	}
	if !reflect.DeepEqual(got, []event.Event{event.WindowCreated{ID: 4}}) {
		t.Fatalf("late subscriber got %v", got)
	}

	closed := b.Subscribe("after-close")
	if _, ok := <-closed.Events(); ok {
		t.Fatal("subscription after close delivered an event")
	}
}

func TestSubscription_CloseDetaches(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe("gone")
	b.Publish(event.RequestRedraw{})
	sub.Close()
	sub.Close()

	if n := b.Subscribers(); n != 0 {
		t.Fatalf("Subscribers = %d, want 0", n)
	}
	for range sub.Events() {
	}
	b.Publish(event.RequestRedraw{})
}

func TestDispatcher_ClosesOncePerIdentityWhenRequested(t *testing.T) {
	backend := newCountingBackend()
	d, sub := startDispatcher(t, backend, true)

	id, err := d.CreateWindow(context.Background(), event.DefaultDescriptor())
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	until(t, sub, event.KindWindowResized)

	backend.Inject(event.WindowCloseRequested{ID: id}, event.WindowCloseRequested{ID: id})

	got := until(t, sub, event.KindWindowClosed)
	want := []event.Event{
		event.WindowCloseRequested{ID: id},
		event.WindowCloseRequested{ID: id},
		event.WindowClosed{ID: id},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if n := backend.closeCount(id); n != 1 {
		t.Fatalf("backend closed %v %d times, want 1", id, n)
	}
}

func TestDispatcher_NoCloseWhenPolicyDisabled(t *testing.T) {
	backend := newCountingBackend()
	d, sub := startDispatcher(t, backend, false)

	id, err := d.CreateWindow(context.Background(), event.DefaultDescriptor())
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	backend.Inject(event.WindowCloseRequested{ID: id}, event.RequestRedraw{})
	until(t, sub, event.KindRequestRedraw)

	if n := backend.closeCount(id); n != 0 {
		t.Fatalf("backend closed %v %d times, want 0", id, n)
	}

	// Manual handling still works.
	if err := d.CloseWindow(context.Background(), id); err != nil {
		t.Fatalf("CloseWindow: %v", err)
	}
	until(t, sub, event.KindWindowClosed)
	if n := backend.closeCount(id); n != 1 {
		t.Fatalf("backend closed %v %d times, want 1", id, n)
	}
}

func TestDispatcher_FailedCloseOnRequestCanBeRetried(t *testing.T) {
	backend := &flakyBackend{countingBackend: newCountingBackend()}
	d, sub := startDispatcher(t, backend, true)
	ctx := context.Background()

	id, err := d.CreateWindow(ctx, event.DefaultDescriptor())
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	backend.Inject(event.WindowCloseRequested{ID: id}, event.RequestRedraw{})
	until(t, sub, event.KindRequestRedraw)
	if n := backend.closeCount(id); n != 1 {
		t.Fatalf("backend close attempts = %d, want 1", n)
	}

	if err := d.CloseWindow(ctx, id); err != nil {
		t.Fatalf("CloseWindow after failed close: %v", err)
	}
	until(t, sub, event.KindWindowClosed)
	if n := backend.closeCount(id); n != 2 {
		t.Fatalf("backend close attempts = %d, want 2", n)
	}
}

func TestDispatcher_ReservesIdentitiesSeenInStream(t *testing.T) {
	backend := newCountingBackend()
	d, sub := startDispatcher(t, backend, true)

	backend.Inject(event.CreateWindow{ID: 7, Descriptor: event.DefaultDescriptor()})
	until(t, sub, event.KindCreateWindow)

	id, err := d.CreateWindow(context.Background(), event.DefaultDescriptor())
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	if id <= 7 {
		t.Fatalf("allocated %v, want an identity above 7", id)
	}
}

func TestDispatcher_Request(t *testing.T) {
	backend := newCountingBackend()
	d, sub := startDispatcher(t, backend, true)
	ctx := context.Background()

	if _, err := d.Request(ctx, Request{}); !errors.Is(err, ErrEmptyRequest) {
		t.Fatalf("empty request err = %v", err)
	}

	desc := event.DefaultDescriptor()
	desc.Title = "editor"
	id, err := d.Request(ctx, Request{Create: &desc})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	first := next(t, sub)
	if cw, ok := first.(event.CreateWindow); !ok || cw.ID != id || cw.Descriptor.Title != "editor" {
		t.Fatalf("first event = %#v", first)
	}

	if _, err := d.Request(ctx, Request{Create: &desc, Close: id}); err == nil {
		t.Fatal("expected error for ambiguous request")
	}
	if _, err := d.Request(ctx, Request{Close: id}); err != nil {
		t.Fatalf("close request: %v", err)
	}
	until(t, sub, event.KindWindowClosed)

	bad := event.DefaultDescriptor()
	bad.Mode = "tiled"
	if _, err := d.Request(ctx, Request{Create: &bad}); err == nil {
		t.Fatal("expected error for invalid descriptor")
	}
}

func TestFold_RoutesGlobalAndViolations(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe("fold")

	b.Publish(event.CreateWindow{ID: 1, Descriptor: event.DefaultDescriptor()})
	b.Publish(event.WindowCreated{ID: 1})
	b.Publish(event.RequestRedraw{})
	b.Publish(event.WindowResized{ID: 2, Width: 10, Height: 10})
	b.Publish(event.WindowResized{ID: 1, Width: 640, Height: 480})
	b.Close()

	var updates []Update
	var globals []event.Event
	h := HandlerFuncs{
		Window: func(u Update) { updates = append(updates, u) },
		Global: func(ev event.Event) { globals = append(globals, ev) },
	}
	m := Fold(context.Background(), sub, h)

	if len(globals) != 1 || globals[0] != (event.RequestRedraw{}) {
		t.Fatalf("globals = %v", globals)
	}
	if len(updates) != 4 {
		t.Fatalf("updates = %d, want 4", len(updates))
	}
	if !errors.Is(updates[2].Err, lifecycle.ErrUnknownIdentity) {
		t.Fatalf("update for unknown window err = %v", updates[2].Err)
	}
	last := updates[3]
	if last.Err != nil || last.Record.State != lifecycle.StateLive || last.Record.Size.Width != 640 {
		t.Fatalf("last update = %+v", last)
	}
	if rec, ok := m.Lookup(1); !ok || rec.Size.Height != 480 {
		t.Fatalf("model record = %+v, %v", rec, ok)
	}
}

func TestFold_StopsOnContext(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe("ctx")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		Fold(ctx, sub, HandlerFuncs{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Fold did not return after cancel")
	}
}
