// Package lifecycle folds an ordered stream of window events into a mirrored
// view of which windows exist and in what state.
//
// Windows move through Requested -> Live -> CloseRequested -> Closed. Events
// that arrive in a state that forbids them are reported as *Violation and
// discarded; folding continues for every other window.
package lifecycle

import (
	"io"
	"log/slog"
	"sort"

	"github.com/1broseidon/winstate/internal/event"
)

// Result describes the effect of one applied event.
type Result struct {
	Event event.Event
	// Scoped is false for global events such as RequestRedraw.
	Scoped bool
	// Record is the window record after the event. Zero for global events and
	// for evicted windows.
	Record  Record
	Changed bool // state transition, not just a field update
	Seq     uint64
}

// Option configures a Model.
type Option func(*Model)

// WithEvictClosed drops records once their window reaches StateClosed.
// Retired identities are still remembered, so later events for them are
// reported as illegal transitions.
func WithEvictClosed(evict bool) Option {
	return func(m *Model) {
		m.evictClosed = evict
	}
}

// WithLogger sets the logger used for transition debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Model is the window lifecycle state machine. It is not safe for concurrent
// use; every consumer folds its own Model from its own ordered stream.
type Model struct {
	records     map[event.WindowID]*Record
	retired     map[event.WindowID]struct{}
	evictClosed bool
	seq         uint64
	logger      *slog.Logger
}

// NewModel returns an empty model.
func NewModel(opts ...Option) *Model {
	m := &Model{
		records: make(map[event.WindowID]*Record),
		retired: make(map[event.WindowID]struct{}),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// accepted lists the states in which a window-scoped event kind may arrive.
// CreateWindow is handled separately because it introduces the identity.
func accepted(k event.Kind) []State {
	switch k {
	case event.KindWindowCreated:
		return []State{StateRequested}
	case event.KindWindowCloseRequested, event.KindWindowClosed:
		return []State{StateLive, StateCloseRequested}
	default:
		return []State{StateLive}
	}
}

// Apply folds ev into the model. A non-nil error is always a *Violation and
// leaves the model unchanged.
func (m *Model) Apply(ev event.Event) (Result, error) {
	m.seq++
	res := Result{Event: ev, Seq: m.seq}

	id, scoped := event.Window(ev)
	if !scoped {
		return res, nil
	}
	res.Scoped = true

	if create, ok := ev.(event.CreateWindow); ok {
		return m.create(create, res)
	}

	rec, known := m.records[id]
	if !known {
		if _, gone := m.retired[id]; gone {
			return res, m.violation(ErrIllegalTransition, id, ev, StateClosed)
		}
		if ev.Kind() == event.KindWindowCreated {
			return res, m.violation(ErrIllegalTransition, id, ev, StateUnknown)
		}
		return res, m.violation(ErrUnknownIdentity, id, ev, StateUnknown)
	}

	if !stateIn(rec.State, accepted(ev.Kind())) {
		return res, m.violation(ErrIllegalTransition, id, ev, rec.State)
	}

	from := rec.State
	m.transition(rec, ev)
	rec.Updated = m.seq
	res.Changed = rec.State != from
	if res.Changed {
		m.logger.Debug("window state changed",
			"window_id", uint32(id),
			"from", from.String(),
			"to", rec.State.String(),
			"event", ev.Kind().String())
	}
	res.Record = rec.clone()

	if rec.State == StateClosed && m.evictClosed {
		delete(m.records, id)
		m.retired[id] = struct{}{}
	}
	return res, nil
}

func (m *Model) create(ev event.CreateWindow, res Result) (Result, error) {
	if rec, ok := m.records[ev.ID]; ok {
		if rec.State == StateClosed {
			return res, m.violation(ErrIllegalTransition, ev.ID, ev, StateClosed)
		}
		return res, m.violation(ErrDuplicateCreateRequest, ev.ID, ev, rec.State)
	}
	if _, gone := m.retired[ev.ID]; gone {
		return res, m.violation(ErrIllegalTransition, ev.ID, ev, StateClosed)
	}

	rec := newRecord(ev, m.seq)
	m.records[ev.ID] = rec
	m.logger.Debug("window requested", "window_id", uint32(ev.ID), "title", rec.Descriptor.Title)
	res.Record = rec.clone()
	res.Changed = true
	return res, nil
}

// transition applies an event already known to be legal in rec.State.
func (m *Model) transition(rec *Record, ev event.Event) {
	switch e := ev.(type) {
	case event.WindowCreated:
		rec.State = StateLive
	case event.WindowResized:
		rec.Size = Size{Width: e.Width, Height: e.Height}
	case event.WindowMoved:
		rec.Position = e.Position
	case event.WindowFocused:
		rec.Focused = e.Focused
	case event.WindowScaleFactorChanged:
		rec.ScaleFactor = e.ScaleFactor
	case event.WindowBackendScaleFactorChanged:
		rec.BackendScaleFactor = e.ScaleFactor
	case event.CursorMoved:
		rec.Cursor = e.Position
	case event.CursorEntered:
		rec.CursorInside = true
	case event.CursorLeft:
		rec.CursorInside = false
	case event.ReceivedCharacter:
		rec.LastChar = e.Char
		rec.Chars++
	case event.FileDragAndDrop:
		switch a := e.Action.(type) {
		case event.HoveredFile:
			rec.HoveredFile = a.Path
		case event.DroppedFile:
			rec.HoveredFile = ""
			rec.DroppedFiles = append(rec.DroppedFiles, a.Path)
		case event.HoveredFileCancelled:
			rec.HoveredFile = ""
		}
	case event.WindowCloseRequested:
		rec.State = StateCloseRequested
	case event.WindowClosed:
		// The record keeps its last-known geometry and focus.
		rec.State = StateClosed
	}
}

func (m *Model) violation(err error, id event.WindowID, ev event.Event, st State) error {
	return &Violation{Err: err, Window: id, Event: ev, State: st}
}

func stateIn(s State, set []State) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

// Fold applies events in order and returns the accepted results and the
// violations. A violation never stops the fold.
func (m *Model) Fold(events []event.Event) ([]Result, []error) {
	results := make([]Result, 0, len(events))
	var errs []error
	for _, ev := range events {
		res, err := m.Apply(ev)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// Lookup returns a copy of the record for id.
func (m *Model) Lookup(id event.WindowID) (Record, bool) {
	rec, ok := m.records[id]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// StateOf returns the state of id. Retired identities report StateClosed.
func (m *Model) StateOf(id event.WindowID) State {
	if rec, ok := m.records[id]; ok {
		return rec.State
	}
	if _, gone := m.retired[id]; gone {
		return StateClosed
	}
	return StateUnknown
}

// Snapshot returns copies of every tracked record, ordered by identity.
func (m *Model) Snapshot() []Record {
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Live returns the identities of windows that currently exist on screen.
func (m *Model) Live() []event.WindowID {
	var ids []event.WindowID
	for id, rec := range m.records {
		if rec.State.Exists() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Focused returns the identity of a focused live window, if any.
func (m *Model) Focused() (event.WindowID, bool) {
	for _, id := range m.Live() {
		if m.records[id].Focused {
			return id, true
		}
	}
	return 0, false
}

// Len returns the number of tracked records.
func (m *Model) Len() int {
	return len(m.records)
}

// Seq returns the number of events applied so far, including rejected ones.
func (m *Model) Seq() uint64 {
	return m.seq
}
