//go:build linux

package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/x11"
)

// LinuxBackend creates and observes X11 windows through an X server
// connection.
type LinuxBackend struct {
	conn   *x11.Connection
	logger *slog.Logger

	queue  *event.Queue
	events chan event.Event
	done   chan struct{}

	mu         sync.Mutex
	translator *translator
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend opens a connection to display ("" means $DISPLAY).
func NewLinuxBackend(display string, logger *slog.Logger) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &LinuxBackend{
		conn:   conn,
		logger: logger,
		queue:  event.NewQueue(),
		events: make(chan event.Event),
		done:   make(chan struct{}),
	}
	b.translator = newTranslator(conn.ScaleFactor(), conn.IsDeleteRequest, conn.LookupString)
	return b, nil
}

func (b *LinuxBackend) Name() string { return "x11" }

func (b *LinuxBackend) Events() <-chan event.Event {
	return b.events
}

// Run reads X events until ctx is cancelled or the connection drops.
func (b *LinuxBackend) Run(ctx context.Context) error {
	go b.queue.Forward(b.events, b.done)

	go func() {
		<-ctx.Done()
		close(b.done)
		// Unblocks NextEvent.
		b.conn.Close()
	}()

	b.logger.Info("x11 backend started", "scale_factor", b.translator.scale)

	var runErr error
	for {
		xev, err := b.conn.NextEvent()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			b.logger.Warn("x11 error", "error", err)
			continue
		}

		b.mu.Lock()
		evs := b.translator.translate(xev)
		b.mu.Unlock()
		b.queue.Push(evs...)
	}

	if ctx.Err() == nil {
		runErr = fmt.Errorf("x11 connection closed")
	}
	b.queue.Close()
	b.logger.Info("x11 backend stopped")
	return runErr
}

// CreateWindow creates and maps an X window. CreateWindow is emitted
// immediately, WindowCreated once the server reports the window mapped.
func (b *LinuxBackend) CreateWindow(_ context.Context, id event.WindowID, desc event.Descriptor) error {
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.translator.known(id) {
		return fmt.Errorf("window %v: %w", id, ErrWindowExists)
	}

	scale := b.translator.scale
	if desc.ScaleFactorOverride != nil {
		scale = *desc.ScaleFactorOverride
	}
	spec := x11.WindowSpec{
		Title:       desc.Title,
		Width:       physical(desc.Width, scale),
		Height:      physical(desc.Height, scale),
		Resizable:   desc.Resizable,
		Decorations: desc.Decorations && desc.Mode == event.ModeWindowed,
		Fullscreen:  desc.Mode != event.ModeWindowed,
	}
	if desc.Position != nil {
		spec.X, spec.Y = desc.Position.X, desc.Position.Y
	}
	if spec.Fullscreen {
		if mon, err := b.targetMonitor(desc.Position); err != nil {
			b.logger.Warn("no monitor for fullscreen window", "window_id", uint32(id), "error", err)
		} else {
			spec = fitMonitor(spec, desc.Mode, *mon)
		}
	}

	xid, err := b.conn.CreateWindow(spec)
	if err != nil {
		return err
	}
	b.translator.register(id, xid, desc, spec)
	b.queue.Push(event.CreateWindow{ID: id, Descriptor: desc.Clone()})
	b.conn.MapWindow(xid)

	b.logger.Debug("x11 window created", "window_id", uint32(id), "xid", uint32(xid))
	return nil
}

// Close destroys the X window. WindowClosed follows on DestroyNotify.
func (b *LinuxBackend) Close(_ context.Context, id event.WindowID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	xid, ok := b.translator.beginClose(id)
	if !ok {
		return fmt.Errorf("window %v: %w", id, ErrUnknownWindow)
	}
	b.conn.DestroyWindow(xid)
	return nil
}

func (b *LinuxBackend) Windows(context.Context) ([]event.WindowID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.translator.ids(), nil
}

func (b *LinuxBackend) targetMonitor(pos *event.PhysicalPoint) (*x11.Monitor, error) {
	if pos == nil {
		return b.conn.PointerMonitor()
	}
	monitors, err := b.conn.Monitors()
	if err != nil {
		return nil, err
	}
	mon := x11.MonitorAt(monitors, pos.X, pos.Y)
	if mon == nil {
		return nil, fmt.Errorf("no monitors found")
	}
	return mon, nil
}

// fitMonitor places a fullscreen window on mon. Sized fullscreen keeps the
// requested size, centered; the other modes cover the monitor.
func fitMonitor(spec x11.WindowSpec, mode event.WindowMode, mon x11.Monitor) x11.WindowSpec {
	if mode == event.ModeSizedFullscreen {
		spec.X = mon.X + (mon.Width-spec.Width)/2
		spec.Y = mon.Y + (mon.Height-spec.Height)/2
		if spec.X < mon.X {
			spec.X = mon.X
		}
		if spec.Y < mon.Y {
			spec.Y = mon.Y
		}
		return spec
	}
	spec.X, spec.Y = mon.X, mon.Y
	spec.Width, spec.Height = mon.Width, mon.Height
	return spec
}

func physical(logical, scale float64) int {
	v := int(math.Round(logical * scale))
	if v < 1 {
		return 1
	}
	return v
}

// x11Window is the translator's view of one X window.
type x11Window struct {
	id      event.WindowID
	xid     xproto.Window
	scale   float64
	mapped  bool
	closing bool

	x, y          int
	width, height int
}

// translator turns raw X events into window events. It holds no connection
// so it can be driven directly in tests.
type translator struct {
	scale    float64
	isDelete func(xproto.ClientMessageEvent) bool
	lookup   func(state uint16, detail xproto.Keycode) string

	byXID map[xproto.Window]*x11Window
	byID  map[event.WindowID]*x11Window
	used  map[event.WindowID]struct{}
}

func newTranslator(scale float64, isDelete func(xproto.ClientMessageEvent) bool, lookup func(uint16, xproto.Keycode) string) *translator {
	if scale <= 0 {
		scale = 1
	}
	return &translator{
		scale:    scale,
		isDelete: isDelete,
		lookup:   lookup,
		byXID:    make(map[xproto.Window]*x11Window),
		byID:     make(map[event.WindowID]*x11Window),
		used:     make(map[event.WindowID]struct{}),
	}
}

func (t *translator) known(id event.WindowID) bool {
	_, ok := t.used[id]
	return ok
}

func (t *translator) register(id event.WindowID, xid xproto.Window, desc event.Descriptor, spec x11.WindowSpec) {
	scale := t.scale
	if desc.ScaleFactorOverride != nil {
		scale = *desc.ScaleFactorOverride
	}
	w := &x11Window{
		id:     id,
		xid:    xid,
		scale:  scale,
		x:      spec.X,
		y:      spec.Y,
		width:  spec.Width,
		height: spec.Height,
	}
	t.byXID[xid] = w
	t.byID[id] = w
	t.used[id] = struct{}{}
}

func (t *translator) beginClose(id event.WindowID) (xproto.Window, bool) {
	w, ok := t.byID[id]
	if !ok || w.closing {
		return 0, false
	}
	w.closing = true
	return w.xid, true
}

func (t *translator) ids() []event.WindowID {
	ids := make([]event.WindowID, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *x11Window) logicalSize() (float64, float64) {
	return float64(w.width) / w.scale, float64(w.height) / w.scale
}

func (t *translator) translate(xev interface{}) []event.Event {
	switch ev := xev.(type) {
	case xproto.MapNotifyEvent:
		w := t.byXID[ev.Window]
		if w == nil || w.mapped {
			return nil
		}
		w.mapped = true
		width, height := w.logicalSize()
		return []event.Event{
			event.WindowCreated{ID: w.id},
			event.WindowBackendScaleFactorChanged{ID: w.id, ScaleFactor: t.scale},
			event.WindowResized{ID: w.id, Width: width, Height: height},
		}

	case xproto.ConfigureNotifyEvent:
		w := t.byXID[ev.Window]
		if w == nil {
			return nil
		}
		var out []event.Event
		if int(ev.Width) != w.width || int(ev.Height) != w.height {
			w.width, w.height = int(ev.Width), int(ev.Height)
			if w.mapped {
				width, height := w.logicalSize()
				out = append(out, event.WindowResized{ID: w.id, Width: width, Height: height})
			}
		}
		if int(ev.X) != w.x || int(ev.Y) != w.y {
			w.x, w.y = int(ev.X), int(ev.Y)
			if w.mapped {
				out = append(out, event.WindowMoved{ID: w.id, Position: event.PhysicalPoint{X: w.x, Y: w.y}})
			}
		}
		return out

	case xproto.FocusInEvent:
		return t.live(ev.Event, func(w *x11Window) []event.Event {
			if ev.Mode == xproto.NotifyModeGrab || ev.Mode == xproto.NotifyModeUngrab {
				return nil
			}
			return []event.Event{event.WindowFocused{ID: w.id, Focused: true}}
		})

	case xproto.FocusOutEvent:
		return t.live(ev.Event, func(w *x11Window) []event.Event {
			if ev.Mode == xproto.NotifyModeGrab || ev.Mode == xproto.NotifyModeUngrab {
				return nil
			}
			return []event.Event{event.WindowFocused{ID: w.id, Focused: false}}
		})

	case xproto.EnterNotifyEvent:
		return t.live(ev.Event, func(w *x11Window) []event.Event {
			return []event.Event{event.CursorEntered{ID: w.id}}
		})

	case xproto.LeaveNotifyEvent:
		return t.live(ev.Event, func(w *x11Window) []event.Event {
			return []event.Event{event.CursorLeft{ID: w.id}}
		})

	case xproto.MotionNotifyEvent:
		return t.live(ev.Event, func(w *x11Window) []event.Event {
			pos := event.Point{X: float64(ev.EventX) / w.scale, Y: float64(ev.EventY) / w.scale}
			return []event.Event{event.CursorMoved{ID: w.id, Position: pos}}
		})

	case xproto.KeyPressEvent:
		return t.live(ev.Event, func(w *x11Window) []event.Event {
			r, ok := KeyRune(t.lookup(ev.State, ev.Detail))
			if !ok {
				return nil
			}
			return []event.Event{event.ReceivedCharacter{ID: w.id, Char: r}}
		})

	case xproto.ClientMessageEvent:
		if !t.isDelete(ev) {
			return nil
		}
		return t.live(ev.Window, func(w *x11Window) []event.Event {
			return []event.Event{event.WindowCloseRequested{ID: w.id}}
		})

	case xproto.DestroyNotifyEvent:
		w := t.byXID[ev.Window]
		if w == nil {
			return nil
		}
		delete(t.byXID, ev.Window)
		delete(t.byID, w.id)
		if !w.mapped {
			// Destroyed before the server ever mapped it.
			return []event.Event{event.WindowCreated{ID: w.id}, event.WindowClosed{ID: w.id}}
		}
		return []event.Event{event.WindowClosed{ID: w.id}}
	}
	return nil
}

// live runs fn for mapped windows only; events for windows that are not
// confirmed yet would break the lifecycle ordering.
func (t *translator) live(xid xproto.Window, fn func(*x11Window) []event.Event) []event.Event {
	w := t.byXID[xid]
	if w == nil || !w.mapped {
		return nil
	}
	return fn(w)
}
