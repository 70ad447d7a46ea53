package lifecycle

import "github.com/1broseidon/winstate/internal/event"

// Size is a logical width and height.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Record is the mirrored view of one window.
type Record struct {
	ID         event.WindowID   `json:"id"`
	State      State            `json:"state"`
	Descriptor event.Descriptor `json:"descriptor"`

	Size               Size                `json:"size"`
	Position           event.PhysicalPoint `json:"position"`
	Focused            bool                `json:"focused"`
	ScaleFactor        float64             `json:"scale_factor"`
	BackendScaleFactor float64             `json:"backend_scale_factor"`

	Cursor       event.Point `json:"cursor"`
	CursorInside bool        `json:"cursor_inside"`
	LastChar     rune        `json:"last_char,omitempty"`
	Chars        int         `json:"chars"`
	HoveredFile  string      `json:"hovered_file,omitempty"`
	DroppedFiles []string    `json:"dropped_files,omitempty"`

	// Created and Updated are model sequence numbers of the CreateWindow and
	// of the last accepted event for this window.
	Created uint64 `json:"created"`
	Updated uint64 `json:"updated"`
}

func newRecord(ev event.CreateWindow, seq uint64) *Record {
	d := ev.Descriptor.Clone()
	r := &Record{
		ID:                 ev.ID,
		State:              StateRequested,
		Descriptor:         d,
		Size:               Size{Width: d.Width, Height: d.Height},
		ScaleFactor:        1,
		BackendScaleFactor: 1,
		Created:            seq,
		Updated:            seq,
	}
	if d.Position != nil {
		r.Position = *d.Position
	}
	if d.ScaleFactorOverride != nil {
		r.ScaleFactor = *d.ScaleFactorOverride
	}
	return r
}

// clone returns a copy that shares no mutable memory with r.
func (r *Record) clone() Record {
	out := *r
	out.Descriptor = r.Descriptor.Clone()
	if r.DroppedFiles != nil {
		out.DroppedFiles = append([]string(nil), r.DroppedFiles...)
	}
	return out
}

// EffectiveScaleFactor is the application override when one was requested,
// the backend factor otherwise.
func (r Record) EffectiveScaleFactor() float64 {
	if r.Descriptor.ScaleFactorOverride != nil {
		return r.ScaleFactor
	}
	return r.BackendScaleFactor
}
