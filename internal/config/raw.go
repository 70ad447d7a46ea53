package config

import "github.com/1broseidon/winstate/internal/event"

// RawConfig is the file representation. Nil fields were not set and keep
// their default.
type RawConfig struct {
	CloseWhenRequested *bool      `yaml:"close_when_requested"`
	EvictClosed        *bool      `yaml:"evict_closed"`
	Backend            *string    `yaml:"backend"`
	Display            *string    `yaml:"display"`
	LogLevel           *string    `yaml:"log_level"`
	ReconcileInterval  *int       `yaml:"reconcile_interval"`
	DefaultWindow      *RawWindow `yaml:"default_window"`
}

// RawWindow overrides individual fields of the default window descriptor.
type RawWindow struct {
	Title               *string              `yaml:"title"`
	Width               *float64             `yaml:"width"`
	Height              *float64             `yaml:"height"`
	Position            *event.PhysicalPoint `yaml:"position"`
	Resizable           *bool                `yaml:"resizable"`
	Decorations         *bool                `yaml:"decorations"`
	CursorVisible       *bool                `yaml:"cursor_visible"`
	CursorLocked        *bool                `yaml:"cursor_locked"`
	Mode                *event.WindowMode    `yaml:"mode"`
	ScaleFactorOverride *float64             `yaml:"scale_factor_override"`
	Transparent         *bool                `yaml:"transparent"`
	VSync               *bool                `yaml:"vsync"`
}

func (w RawWindow) applyTo(d *event.Descriptor) {
	if w.Title != nil {
		d.Title = *w.Title
	}
	if w.Width != nil {
		d.Width = *w.Width
	}
	if w.Height != nil {
		d.Height = *w.Height
	}
	if w.Position != nil {
		p := *w.Position
		d.Position = &p
	}
	if w.Resizable != nil {
		d.Resizable = *w.Resizable
	}
	if w.Decorations != nil {
		d.Decorations = *w.Decorations
	}
	if w.CursorVisible != nil {
		d.CursorVisible = *w.CursorVisible
	}
	if w.CursorLocked != nil {
		d.CursorLocked = *w.CursorLocked
	}
	if w.Mode != nil {
		d.Mode = *w.Mode
	}
	if w.ScaleFactorOverride != nil {
		s := *w.ScaleFactorOverride
		d.ScaleFactorOverride = &s
	}
	if w.Transparent != nil {
		d.Transparent = *w.Transparent
	}
	if w.VSync != nil {
		d.VSync = *w.VSync
	}
}
