package event

import (
	"fmt"
	"strings"
)

// WindowMode defines how a window occupies the screen.
type WindowMode string

const (
	ModeWindowed             WindowMode = "windowed"
	ModeBorderlessFullscreen WindowMode = "borderless-fullscreen"
	ModeSizedFullscreen      WindowMode = "sized-fullscreen"
	ModeFullscreen           WindowMode = "fullscreen"
)

// Modes lists the valid window modes.
func Modes() []WindowMode {
	return []WindowMode{ModeWindowed, ModeBorderlessFullscreen, ModeSizedFullscreen, ModeFullscreen}
}

// Descriptor configures a window at creation time. It is consumed once by the
// backend that handles CreateWindow.
type Descriptor struct {
	Title  string  `json:"title" yaml:"title"`
	Width  float64 `json:"width" yaml:"width"`   // logical
	Height float64 `json:"height" yaml:"height"` // logical
	// Position is the initial top-left corner in physical pixels. Nil lets the
	// window manager decide.
	Position            *PhysicalPoint `json:"position,omitempty" yaml:"position,omitempty"`
	Resizable           bool           `json:"resizable" yaml:"resizable"`
	Decorations         bool           `json:"decorations" yaml:"decorations"`
	CursorVisible       bool           `json:"cursor_visible" yaml:"cursor_visible"`
	CursorLocked        bool           `json:"cursor_locked" yaml:"cursor_locked"`
	Mode                WindowMode     `json:"mode" yaml:"mode"`
	ScaleFactorOverride *float64       `json:"scale_factor_override,omitempty" yaml:"scale_factor_override,omitempty"`
	Transparent         bool           `json:"transparent" yaml:"transparent"`
	VSync               bool           `json:"vsync" yaml:"vsync"`
}

// DefaultDescriptor returns a decorated, resizable 1280x720 window.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		Title:         "app",
		Width:         1280,
		Height:        720,
		Resizable:     true,
		Decorations:   true,
		CursorVisible: true,
		Mode:          ModeWindowed,
		VSync:         true,
	}
}

// Validate checks sizes, mode and scale factor override.
func (d Descriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %gx%g", d.Width, d.Height)
	}
	switch d.Mode {
	case ModeWindowed, ModeBorderlessFullscreen, ModeSizedFullscreen, ModeFullscreen:
	case "":
		return fmt.Errorf("window mode is required")
	default:
		valid := make([]string, 0, len(Modes()))
		for _, m := range Modes() {
			valid = append(valid, string(m))
		}
		return fmt.Errorf("unknown window mode %q (valid: %s)", d.Mode, strings.Join(valid, ", "))
	}
	if d.ScaleFactorOverride != nil && *d.ScaleFactorOverride <= 0 {
		return fmt.Errorf("scale_factor_override must be positive, got %g", *d.ScaleFactorOverride)
	}
	return nil
}

// Clone returns a copy that shares no pointers with d.
func (d Descriptor) Clone() Descriptor {
	out := d
	if d.Position != nil {
		p := *d.Position
		out.Position = &p
	}
	if d.ScaleFactorOverride != nil {
		s := *d.ScaleFactorOverride
		out.ScaleFactorOverride = &s
	}
	return out
}
