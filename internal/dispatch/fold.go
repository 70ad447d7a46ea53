package dispatch

import (
	"context"

	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/lifecycle"
)

// Update is what a consumer sees for one window-scoped event: the event, the
// window's record after it was applied, or the violation that rejected it.
type Update struct {
	Event  event.Event
	Record lifecycle.Record
	Err    error
}

// Handler consumes a folded event stream. Global events such as
// RequestRedraw never reach HandleWindow.
type Handler interface {
	HandleWindow(Update)
	HandleGlobal(event.Event)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Window func(Update)
	Global func(event.Event)
}

func (h HandlerFuncs) HandleWindow(u Update) {
	if h.Window != nil {
		h.Window(u)
	}
}

func (h HandlerFuncs) HandleGlobal(ev event.Event) {
	if h.Global != nil {
		h.Global(ev)
	}
}

// Fold replays sub through a private lifecycle model until the subscription
// ends or ctx is cancelled, and returns that model.
func Fold(ctx context.Context, sub *Subscription, h Handler, opts ...lifecycle.Option) *lifecycle.Model {
	m := lifecycle.NewModel(opts...)
	for {
		select {
		case <-ctx.Done():
			return m
		case ev, ok := <-sub.Events():
			if !ok {
				return m
			}
			Step(m, ev, h)
		}
	}
}

// Step applies one event to m and routes the outcome to h.
func Step(m *lifecycle.Model, ev event.Event, h Handler) {
	res, err := m.Apply(ev)
	if !res.Scoped && err == nil {
		h.HandleGlobal(ev)
		return
	}
	h.HandleWindow(Update{Event: ev, Record: res.Record, Err: err})
}
