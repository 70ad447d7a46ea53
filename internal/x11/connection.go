package x11

import (
	"fmt"
	"io"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	wmProtocols  xproto.Atom
	deleteWindow xproto.Atom
}

// NewConnection connects to display (empty means $DISPLAY) and initializes
// the keyboard mapping used for character lookup.
func NewConnection(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, err
	}

	// Initialize keybind module (required for keycode -> string lookup)
	keybind.Initialize(xu)

	c := &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}

	if c.wmProtocols, err = xprop.Atm(xu, "WM_PROTOCOLS"); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("failed to intern WM_PROTOCOLS: %w", err)
	}
	if c.deleteWindow, err = xprop.Atm(xu, "WM_DELETE_WINDOW"); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("failed to intern WM_DELETE_WINDOW: %w", err)
	}

	return c, nil
}

// NextEvent blocks until the server sends an event. It returns io.EOF once
// the connection is closed.
func (c *Connection) NextEvent() (xgb.Event, error) {
	ev, xerr := c.XUtil.Conn().WaitForEvent()
	if ev == nil && xerr == nil {
		return nil, io.EOF
	}
	if xerr != nil {
		return ev, xerr
	}
	return ev, nil
}

// IsDeleteRequest reports whether ev is a WM_DELETE_WINDOW protocol message.
func (c *Connection) IsDeleteRequest(ev xproto.ClientMessageEvent) bool {
	if ev.Type != c.wmProtocols || ev.Format != 32 {
		return false
	}
	return xproto.Atom(ev.Data.Data32[0]) == c.deleteWindow
}

// LookupString returns the text or keysym name for a key press.
func (c *Connection) LookupString(state uint16, detail xproto.Keycode) string {
	return keybind.LookupString(c.XUtil, state, detail)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
