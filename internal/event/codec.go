package event

import (
	"encoding/json"
	"fmt"
	"math"
	"unicode/utf8"
)

// Wire is the flat serialized form of an event, shared by the IPC stream
// (JSON) and trace files (YAML).
type Wire struct {
	Kind        Kind        `json:"kind" yaml:"kind"`
	Window      WindowID    `json:"window,omitempty" yaml:"window,omitempty"`
	Descriptor  *Descriptor `json:"descriptor,omitempty" yaml:"descriptor,omitempty"`
	Width       float64     `json:"width,omitempty" yaml:"width,omitempty"`
	Height      float64     `json:"height,omitempty" yaml:"height,omitempty"`
	X           float64     `json:"x,omitempty" yaml:"x,omitempty"`
	Y           float64     `json:"y,omitempty" yaml:"y,omitempty"`
	Char        string      `json:"char,omitempty" yaml:"char,omitempty"`
	Focused     *bool       `json:"focused,omitempty" yaml:"focused,omitempty"`
	ScaleFactor float64     `json:"scale_factor,omitempty" yaml:"scale_factor,omitempty"`
	Action      string      `json:"action,omitempty" yaml:"action,omitempty"`
	Path        string      `json:"path,omitempty" yaml:"path,omitempty"`
}

// ToWire flattens ev.
func ToWire(ev Event) (Wire, error) {
	w := Wire{Kind: ev.Kind()}
	if id, ok := Window(ev); ok {
		w.Window = id
	}

	switch e := ev.(type) {
	case CreateWindow:
		d := e.Descriptor.Clone()
		w.Descriptor = &d
	case WindowCreated, WindowCloseRequested, WindowClosed, CursorEntered, CursorLeft, RequestRedraw:
	case WindowResized:
		w.Width, w.Height = e.Width, e.Height
	case WindowMoved:
		w.X, w.Y = float64(e.Position.X), float64(e.Position.Y)
	case CursorMoved:
		w.X, w.Y = e.Position.X, e.Position.Y
	case ReceivedCharacter:
		if !utf8.ValidRune(e.Char) {
			return Wire{}, fmt.Errorf("%s: invalid rune %U", ev.Kind(), e.Char)
		}
		w.Char = string(e.Char)
	case WindowFocused:
		focused := e.Focused
		w.Focused = &focused
	case WindowScaleFactorChanged:
		w.ScaleFactor = e.ScaleFactor
	case WindowBackendScaleFactorChanged:
		w.ScaleFactor = e.ScaleFactor
	case FileDragAndDrop:
		if e.Action == nil {
			return Wire{}, fmt.Errorf("%s: missing action", ev.Kind())
		}
		w.Action = e.ActionName()
		w.Path, _ = e.Path()
	default:
		return Wire{}, fmt.Errorf("unhandled event type %T", ev)
	}
	return w, nil
}

// FromWire rebuilds the event described by w.
func FromWire(w Wire) (Event, error) {
	if w.Kind.Scoped() && w.Window == 0 {
		return nil, fmt.Errorf("%s: missing window", w.Kind)
	}

	switch w.Kind {
	case KindCreateWindow:
		d := DefaultDescriptor()
		if w.Descriptor != nil {
			d = w.Descriptor.Clone()
		}
		return CreateWindow{ID: w.Window, Descriptor: d}, nil
	case KindWindowCreated:
		return WindowCreated{ID: w.Window}, nil
	case KindWindowResized:
		return WindowResized{ID: w.Window, Width: w.Width, Height: w.Height}, nil
	case KindWindowMoved:
		if w.X != math.Trunc(w.X) || w.Y != math.Trunc(w.Y) {
			return nil, fmt.Errorf("%s: position must be whole pixels, got (%g, %g)", w.Kind, w.X, w.Y)
		}
		return WindowMoved{ID: w.Window, Position: PhysicalPoint{X: int(w.X), Y: int(w.Y)}}, nil
	case KindWindowCloseRequested:
		return WindowCloseRequested{ID: w.Window}, nil
	case KindWindowClosed:
		return WindowClosed{ID: w.Window}, nil
	case KindCursorMoved:
		return CursorMoved{ID: w.Window, Position: Point{X: w.X, Y: w.Y}}, nil
	case KindCursorEntered:
		return CursorEntered{ID: w.Window}, nil
	case KindCursorLeft:
		return CursorLeft{ID: w.Window}, nil
	case KindReceivedCharacter:
		if utf8.RuneCountInString(w.Char) != 1 {
			return nil, fmt.Errorf("%s: char must be exactly one character, got %q", w.Kind, w.Char)
		}
		r, size := utf8.DecodeRuneInString(w.Char)
		if r == utf8.RuneError && size <= 1 {
			return nil, fmt.Errorf("%s: invalid character %q", w.Kind, w.Char)
		}
		return ReceivedCharacter{ID: w.Window, Char: r}, nil
	case KindWindowFocused:
		if w.Focused == nil {
			return nil, fmt.Errorf("%s: missing focused", w.Kind)
		}
		return WindowFocused{ID: w.Window, Focused: *w.Focused}, nil
	case KindWindowScaleFactorChanged:
		return WindowScaleFactorChanged{ID: w.Window, ScaleFactor: w.ScaleFactor}, nil
	case KindWindowBackendScaleFactorChanged:
		return WindowBackendScaleFactorChanged{ID: w.Window, ScaleFactor: w.ScaleFactor}, nil
	case KindFileDragAndDrop:
		switch w.Action {
		case dragDropped:
			return Dropped(w.Window, w.Path), nil
		case dragHovered:
			return Hovered(w.Window, w.Path), nil
		case dragCancelled:
			return HoverCancelled(w.Window), nil
		default:
			return nil, fmt.Errorf("%s: unknown action %q", w.Kind, w.Action)
		}
	case KindRequestRedraw:
		return RequestRedraw{}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %s", w.Kind)
	}
}

// Marshal encodes ev as a single JSON object.
func Marshal(ev Event) ([]byte, error) {
	w, err := ToWire(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// Unmarshal decodes an event produced by Marshal.
func Unmarshal(data []byte) (Event, error) {
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	return FromWire(w)
}
