package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/lifecycle"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload      CommandType = "RELOAD"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandListWindows CommandType = "LIST_WINDOWS"
	CommandGetWindow   CommandType = "GET_WINDOW"
	CommandCreate      CommandType = "CREATE_WINDOW"
	CommandClose       CommandType = "CLOSE_WINDOW"
	CommandSubscribe   CommandType = "SUBSCRIBE"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Backend            string         `json:"backend"`
	UptimeSeconds      int64          `json:"uptime_seconds"`
	DaemonRunning      bool           `json:"daemon_running"`
	CloseWhenRequested bool           `json:"close_when_requested"`
	Windows            int            `json:"windows"`
	States             map[string]int `json:"states"` // lifecycle state name -> window count
	Violations         int            `json:"violations"`
	Events             uint64         `json:"events"`
	Subscribers        int            `json:"subscribers"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []lifecycle.Record `json:"windows"`
}

// WindowPayload names a window for GET_WINDOW and CLOSE_WINDOW.
type WindowPayload struct {
	Window uint32 `json:"window"`
}

// CreateWindowPayload is the payload for CREATE_WINDOW. A nil descriptor
// uses the daemon's default_window.
type CreateWindowPayload struct {
	Descriptor *event.Descriptor `json:"descriptor,omitempty"`
}

// CreateWindowData is the identity allocated for a new window.
type CreateWindowData struct {
	Window uint32 `json:"window"`
}

// SubscribePayload filters a SUBSCRIBE stream. Empty fields match
// everything.
type SubscribePayload struct {
	Kinds  []string `json:"kinds,omitempty"`
	Window uint32   `json:"window,omitempty"`
}

// filter is a parsed SubscribePayload.
type filter struct {
	kinds  map[event.Kind]struct{}
	window event.WindowID
}

func (p SubscribePayload) compile() (filter, error) {
	f := filter{window: event.WindowID(p.Window)}
	if len(p.Kinds) == 0 {
		return f, nil
	}
	f.kinds = make(map[event.Kind]struct{}, len(p.Kinds))
	for _, name := range p.Kinds {
		k, err := event.ParseKind(name)
		if err != nil {
			return filter{}, err
		}
		f.kinds[k] = struct{}{}
	}
	return f, nil
}

func (f filter) match(ev event.Event) bool {
	if f.kinds != nil {
		if _, ok := f.kinds[ev.Kind()]; !ok {
			return false
		}
	}
	if f.window != 0 {
		id, ok := event.Window(ev)
		if !ok || id != f.window {
			return false
		}
	}
	return true
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
