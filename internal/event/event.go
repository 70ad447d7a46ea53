// Package event defines the window event vocabulary reported by a windowing
// backend: window lifecycle changes, geometry, focus, cursor and text input,
// drag-and-drop, and the global redraw hint.
//
// Every variant is an immutable value. Consumers that need derived state
// (which windows exist, which one has focus) fold the ordered stream
// themselves; see the lifecycle package.
package event

import "fmt"

// WindowID names one window from its creation request until it is closed.
// Identities are never reused within a process run.
type WindowID uint32

func (id WindowID) String() string {
	return fmt.Sprintf("#%d", uint32(id))
}

// Point is a position in logical (scale-factor independent) units.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// PhysicalPoint is a position in device pixels.
type PhysicalPoint struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Event is implemented only by the variants declared in this package.
type Event interface {
	Kind() Kind
	isEvent()
}

// Scoped is implemented by every event that carries a window identity.
type Scoped interface {
	Event
	Window() WindowID
}

// Window returns the identity carried by ev. ok is false for global events.
func Window(ev Event) (id WindowID, ok bool) {
	s, ok := ev.(Scoped)
	if !ok {
		return 0, false
	}
	return s.Window(), true
}

// CreateWindow requests a new window. The identity is assigned by the
// requester before the window exists.
type CreateWindow struct {
	ID         WindowID
	Descriptor Descriptor
}

// WindowCreated confirms that the backend created the window.
type WindowCreated struct {
	ID WindowID
}

// WindowResized reports a new logical size.
type WindowResized struct {
	ID     WindowID
	Width  float64
	Height float64
}

// WindowMoved reports a new position in physical pixels.
type WindowMoved struct {
	ID       WindowID
	Position PhysicalPoint
}

// WindowCloseRequested is sent when the OS or the user asks for the window to
// close. The window still exists.
type WindowCloseRequested struct {
	ID WindowID
}

// WindowClosed is sent once the window has been destroyed. The identity is
// retired afterwards.
type WindowClosed struct {
	ID WindowID
}

// CursorMoved reports the pointer position inside a window, in logical units.
type CursorMoved struct {
	ID       WindowID
	Position Point
}

// CursorEntered is sent when the pointer enters a window.
type CursorEntered struct {
	ID WindowID
}

// CursorLeft is sent when the pointer leaves a window.
type CursorLeft struct {
	ID WindowID
}

// ReceivedCharacter carries a single Unicode scalar value. Text longer than
// one character arrives as several events in order.
type ReceivedCharacter struct {
	ID   WindowID
	Char rune
}

// WindowFocused reports that a window gained or lost focus.
type WindowFocused struct {
	ID      WindowID
	Focused bool
}

// WindowScaleFactorChanged reports an application driven scale factor change.
type WindowScaleFactorChanged struct {
	ID          WindowID
	ScaleFactor float64
}

// WindowBackendScaleFactorChanged reports a scale factor change coming from
// the operating system.
type WindowBackendScaleFactorChanged struct {
	ID          WindowID
	ScaleFactor float64
}

// RequestRedraw asks for a redraw even when no window events are pending.
// It is process wide and carries no window identity.
type RequestRedraw struct{}

func (CreateWindow) Kind() Kind                    { return KindCreateWindow }
func (WindowCreated) Kind() Kind                   { return KindWindowCreated }
func (WindowResized) Kind() Kind                   { return KindWindowResized }
func (WindowMoved) Kind() Kind                     { return KindWindowMoved }
func (WindowCloseRequested) Kind() Kind            { return KindWindowCloseRequested }
func (WindowClosed) Kind() Kind                    { return KindWindowClosed }
func (CursorMoved) Kind() Kind                     { return KindCursorMoved }
func (CursorEntered) Kind() Kind                   { return KindCursorEntered }
func (CursorLeft) Kind() Kind                      { return KindCursorLeft }
func (ReceivedCharacter) Kind() Kind               { return KindReceivedCharacter }
func (WindowFocused) Kind() Kind                   { return KindWindowFocused }
func (WindowScaleFactorChanged) Kind() Kind        { return KindWindowScaleFactorChanged }
func (WindowBackendScaleFactorChanged) Kind() Kind { return KindWindowBackendScaleFactorChanged }
func (FileDragAndDrop) Kind() Kind                 { return KindFileDragAndDrop }
func (RequestRedraw) Kind() Kind                   { return KindRequestRedraw }

func (e CreateWindow) Window() WindowID                    { return e.ID }
func (e WindowCreated) Window() WindowID                   { return e.ID }
func (e WindowResized) Window() WindowID                   { return e.ID }
func (e WindowMoved) Window() WindowID                     { return e.ID }
func (e WindowCloseRequested) Window() WindowID            { return e.ID }
func (e WindowClosed) Window() WindowID                    { return e.ID }
func (e CursorMoved) Window() WindowID                     { return e.ID }
func (e CursorEntered) Window() WindowID                   { return e.ID }
func (e CursorLeft) Window() WindowID                      { return e.ID }
func (e ReceivedCharacter) Window() WindowID               { return e.ID }
func (e WindowFocused) Window() WindowID                   { return e.ID }
func (e WindowScaleFactorChanged) Window() WindowID        { return e.ID }
func (e WindowBackendScaleFactorChanged) Window() WindowID { return e.ID }
func (e FileDragAndDrop) Window() WindowID                 { return e.ID }

func (CreateWindow) isEvent()                    {}
func (WindowCreated) isEvent()                   {}
func (WindowResized) isEvent()                   {}
func (WindowMoved) isEvent()                     {}
func (WindowCloseRequested) isEvent()            {}
func (WindowClosed) isEvent()                    {}
func (CursorMoved) isEvent()                     {}
func (CursorEntered) isEvent()                   {}
func (CursorLeft) isEvent()                      {}
func (ReceivedCharacter) isEvent()               {}
func (WindowFocused) isEvent()                   {}
func (WindowScaleFactorChanged) isEvent()        {}
func (WindowBackendScaleFactorChanged) isEvent() {}
func (FileDragAndDrop) isEvent()                 {}
func (RequestRedraw) isEvent()                   {}

// Characters splits s into one ReceivedCharacter per rune, preserving order.
func Characters(id WindowID, s string) []Event {
	evs := make([]Event, 0, len(s))
	for _, r := range s {
		evs = append(evs, ReceivedCharacter{ID: id, Char: r})
	}
	return evs
}
