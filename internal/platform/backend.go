package platform

import (
	"context"
	"errors"

	"github.com/1broseidon/winstate/internal/event"
)

var (
	// ErrUnknownWindow is returned for requests naming a window the backend
	// does not own.
	ErrUnknownWindow = errors.New("unknown window")
	// ErrWindowExists is returned when a create request reuses an identity.
	ErrWindowExists = errors.New("window identity already in use")
	// ErrStopped is returned for requests issued after the backend stopped.
	ErrStopped = errors.New("backend stopped")
)

// Backend produces the ordered window event stream and accepts window
// requests.
//
// Events for one window are emitted in lifecycle order: CreateWindow, then
// exactly one WindowCreated, then any updates, then at most one WindowClosed.
// The Events channel is closed once Run returns.
type Backend interface {
	// Name identifies the backend ("x11", "scripted").
	Name() string

	// Run drives the backend until ctx is cancelled or the window system
	// connection is lost.
	Run(ctx context.Context) error

	// Events returns the ordered event stream.
	Events() <-chan event.Event

	// CreateWindow opens a window under the given identity.
	CreateWindow(ctx context.Context, id event.WindowID, desc event.Descriptor) error

	// Close destroys a window programmatically. The backend follows up with
	// WindowClosed.
	Close(ctx context.Context, id event.WindowID) error

	// Windows lists the identities of windows that currently exist.
	Windows(ctx context.Context) ([]event.WindowID, error)
}
