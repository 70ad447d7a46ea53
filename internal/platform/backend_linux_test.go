//go:build linux

package platform

import (
	"reflect"
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/x11"
)

const deleteAtom = xproto.Atom(99)

func testTranslator(scale float64) *translator {
	isDelete := func(ev xproto.ClientMessageEvent) bool {
		return xproto.Atom(ev.Data.Data32[0]) == deleteAtom
	}
	keys := map[xproto.Keycode]string{38: "a", 36: "Return", 50: "Shift_L"}
	lookup := func(_ uint16, detail xproto.Keycode) string { return keys[detail] }
	return newTranslator(scale, isDelete, lookup)
}

func register(tr *translator, id event.WindowID, xid xproto.Window) {
	tr.register(id, xid, event.DefaultDescriptor(), x11.WindowSpec{Width: 200, Height: 100})
}

func deleteMessage(xid xproto.Window) xproto.ClientMessageEvent {
	return xproto.ClientMessageEvent{
		Format: 32,
		Window: xid,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(deleteAtom), 0, 0, 0, 0}),
	}
}

func TestTranslator_MapEmitsCreatedOnce(t *testing.T) {
	tr := testTranslator(2)
	register(tr, 1, 0x400)

	got := tr.translate(xproto.MapNotifyEvent{Window: 0x400})
	want := []event.Event{
		event.WindowCreated{ID: 1},
		event.WindowBackendScaleFactorChanged{ID: 1, ScaleFactor: 2},
		event.WindowResized{ID: 1, Width: 100, Height: 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("map = %#v, want %#v", got, want)
	}

	if again := tr.translate(xproto.MapNotifyEvent{Window: 0x400}); len(again) != 0 {
		t.Fatalf("second map emitted %v", again)
	}
}

func TestTranslator_EventsBeforeMapAreDropped(t *testing.T) {
	tr := testTranslator(1)
	register(tr, 1, 0x400)

	for _, xev := range []interface{}{
		xproto.FocusInEvent{Event: 0x400},
		xproto.EnterNotifyEvent{Event: 0x400},
		xproto.KeyPressEvent{Event: 0x400, Detail: 38},
		xproto.ConfigureNotifyEvent{Window: 0x400, Width: 300, Height: 100},
	} {
		if got := tr.translate(xev); len(got) != 0 {
			t.Fatalf("%T before map emitted %v", xev, got)
		}
	}

	// The buffered geometry is reported with the creation.
	got := tr.translate(xproto.MapNotifyEvent{Window: 0x400})
	if resized, ok := got[2].(event.WindowResized); !ok || resized.Width != 300 {
		t.Fatalf("initial size = %#v", got[2])
	}
}

func TestTranslator_ConfigureSplitsResizeAndMove(t *testing.T) {
	tr := testTranslator(1)
	register(tr, 1, 0x400)
	tr.translate(xproto.MapNotifyEvent{Window: 0x400})

	got := tr.translate(xproto.ConfigureNotifyEvent{Window: 0x400, X: 10, Y: 20, Width: 200, Height: 100})
	want := []event.Event{event.WindowMoved{ID: 1, Position: event.PhysicalPoint{X: 10, Y: 20}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("move = %#v, want %#v", got, want)
	}

	got = tr.translate(xproto.ConfigureNotifyEvent{Window: 0x400, X: 10, Y: 20, Width: 640, Height: 480})
	want = []event.Event{event.WindowResized{ID: 1, Width: 640, Height: 480}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("resize = %#v, want %#v", got, want)
	}

	if got := tr.translate(xproto.ConfigureNotifyEvent{Window: 0x400, X: 10, Y: 20, Width: 640, Height: 480}); len(got) != 0 {
		t.Fatalf("unchanged geometry emitted %v", got)
	}
}

func TestTranslator_InputEvents(t *testing.T) {
	tr := testTranslator(2)
	register(tr, 1, 0x400)
	tr.translate(xproto.MapNotifyEvent{Window: 0x400})

	cases := []struct {
		name string
		xev  interface{}
		want []event.Event
	}{
		{"focus in", xproto.FocusInEvent{Event: 0x400, Mode: xproto.NotifyModeNormal}, []event.Event{event.WindowFocused{ID: 1, Focused: true}}},
		{"focus out", xproto.FocusOutEvent{Event: 0x400, Mode: xproto.NotifyModeNormal}, []event.Event{event.WindowFocused{ID: 1, Focused: false}}},
		{"grab focus ignored", xproto.FocusInEvent{Event: 0x400, Mode: xproto.NotifyModeGrab}, nil},
		{"enter", xproto.EnterNotifyEvent{Event: 0x400}, []event.Event{event.CursorEntered{ID: 1}}},
		{"leave", xproto.LeaveNotifyEvent{Event: 0x400}, []event.Event{event.CursorLeft{ID: 1}}},
		{"motion is logical", xproto.MotionNotifyEvent{Event: 0x400, EventX: 40, EventY: 10}, []event.Event{event.CursorMoved{ID: 1, Position: event.Point{X: 20, Y: 5}}}},
		{"key", xproto.KeyPressEvent{Event: 0x400, Detail: 38}, []event.Event{event.ReceivedCharacter{ID: 1, Char: 'a'}}},
		{"return key", xproto.KeyPressEvent{Event: 0x400, Detail: 36}, []event.Event{event.ReceivedCharacter{ID: 1, Char: '\r'}}},
		{"modifier ignored", xproto.KeyPressEvent{Event: 0x400, Detail: 50}, nil},
		{"close button", deleteMessage(0x400), []event.Event{event.WindowCloseRequested{ID: 1}}},
		{"foreign window", xproto.EnterNotifyEvent{Event: 0x999}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tr.translate(tc.xev)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("translate = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestTranslator_DestroyClosesOnce(t *testing.T) {
	tr := testTranslator(1)
	register(tr, 1, 0x400)
	tr.translate(xproto.MapNotifyEvent{Window: 0x400})

	if _, ok := tr.beginClose(1); !ok {
		t.Fatal("beginClose on live window failed")
	}
	if _, ok := tr.beginClose(1); ok {
		t.Fatal("second beginClose succeeded")
	}

	got := tr.translate(xproto.DestroyNotifyEvent{Window: 0x400})
	if !reflect.DeepEqual(got, []event.Event{event.WindowClosed{ID: 1}}) {
		t.Fatalf("destroy = %#v", got)
	}
	if got := tr.translate(xproto.DestroyNotifyEvent{Window: 0x400}); len(got) != 0 {
		t.Fatalf("second destroy emitted %v", got)
	}
	if len(tr.ids()) != 0 {
		t.Fatalf("ids after destroy = %v", tr.ids())
	}
	if !tr.known(1) {
		t.Fatal("destroyed identity must stay reserved")
	}
}

func TestTranslator_DestroyBeforeMap(t *testing.T) {
	tr := testTranslator(1)
	register(tr, 3, 0x500)

	got := tr.translate(xproto.DestroyNotifyEvent{Window: 0x500})
	want := []event.Event{event.WindowCreated{ID: 3}, event.WindowClosed{ID: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("destroy = %#v, want %#v", got, want)
	}
}

func TestFitMonitor(t *testing.T) {
	mon := x11.Monitor{Name: "HDMI-1", X: 1920, Y: 0, Width: 2560, Height: 1440}
	spec := x11.WindowSpec{X: 5, Y: 5, Width: 800, Height: 600, Fullscreen: true}

	tests := []struct {
		mode event.WindowMode
		want x11.WindowSpec
	}{
		{event.ModeFullscreen, x11.WindowSpec{X: 1920, Y: 0, Width: 2560, Height: 1440, Fullscreen: true}},
		{event.ModeBorderlessFullscreen, x11.WindowSpec{X: 1920, Y: 0, Width: 2560, Height: 1440, Fullscreen: true}},
		{event.ModeSizedFullscreen, x11.WindowSpec{X: 1920 + 880, Y: 420, Width: 800, Height: 600, Fullscreen: true}},
	}
	for _, tt := range tests {
		if got := fitMonitor(spec, tt.mode, mon); got != tt.want {
			t.Errorf("fitMonitor(%s) = %+v, want %+v", tt.mode, got, tt.want)
		}
	}

	big := x11.WindowSpec{Width: 4000, Height: 3000, Fullscreen: true}
	got := fitMonitor(big, event.ModeSizedFullscreen, mon)
	if got.X != mon.X || got.Y != mon.Y {
		t.Errorf("oversized window placed at %d,%d, want monitor origin", got.X, got.Y)
	}
}
