package mcp

import "github.com/1broseidon/winstate/internal/lifecycle"

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	State string `json:"state,omitempty" jsonschema:"Only return windows in this lifecycle state (requested, live, close-requested, closed)"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
	Count   int          `json:"count"`
}

// WindowInfo is the summary of one tracked window.
type WindowInfo struct {
	Window      uint32  `json:"window"`
	State       string  `json:"state"`
	Title       string  `json:"title"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Focused     bool    `json:"focused"`
	ScaleFactor float64 `json:"scale_factor"`
}

// GetWindowInput is the input for the get_window tool.
type GetWindowInput struct {
	Window uint32 `json:"window" jsonschema:"required,Window identity as returned by list_windows or create_window"`
}

// GetWindowOutput is the output for the get_window tool.
type GetWindowOutput struct {
	Record lifecycle.Record `json:"record"`
}

// CreateWindowInput is the input for the create_window tool. An empty input
// uses the daemon's default_window; otherwise unset fields take the built-in
// defaults.
type CreateWindowInput struct {
	Title       string   `json:"title,omitempty" jsonschema:"Window title"`
	Width       float64  `json:"width,omitempty" jsonschema:"Logical width"`
	Height      float64  `json:"height,omitempty" jsonschema:"Logical height"`
	Mode        string   `json:"mode,omitempty" jsonschema:"windowed, borderless-fullscreen, sized-fullscreen or fullscreen"`
	Resizable   *bool    `json:"resizable,omitempty" jsonschema:"Whether the user may resize the window"`
	Decorations *bool    `json:"decorations,omitempty" jsonschema:"Whether the window manager draws a frame"`
	ScaleFactor *float64 `json:"scale_factor,omitempty" jsonschema:"Override the backend scale factor"`
}

// CreateWindowOutput is the output for the create_window tool.
type CreateWindowOutput struct {
	Window uint32 `json:"window"`
}

// CloseWindowInput is the input for the close_window tool.
type CloseWindowInput struct {
	Window uint32 `json:"window" jsonschema:"required,Window identity to close"`
}

// CloseWindowOutput is the output for the close_window tool.
type CloseWindowOutput struct {
	Window uint32 `json:"window"`
	Closed bool   `json:"closed"`
}
