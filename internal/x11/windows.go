package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/motif"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// eventMask selects every notification the backend translates.
const eventMask = xproto.EventMaskStructureNotify |
	xproto.EventMaskFocusChange |
	xproto.EventMaskEnterWindow |
	xproto.EventMaskLeaveWindow |
	xproto.EventMaskPointerMotion |
	xproto.EventMaskKeyPress

// WindowSpec is the physical geometry and decoration of a new window.
type WindowSpec struct {
	Title       string
	X, Y        int
	Width       int
	Height      int
	Resizable   bool
	Decorations bool
	Fullscreen  bool
}

// CreateWindow creates an unmapped top-level window that participates in
// WM_DELETE_WINDOW.
func (c *Connection) CreateWindow(spec WindowSpec) (xproto.Window, error) {
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate window id: %w", err)
	}

	// mask/values order is defined by the protocol
	err = win.CreateChecked(c.Root,
		spec.X, spec.Y, spec.Width, spec.Height,
		xproto.CwBackPixel|xproto.CwEventMask,
		0, eventMask)
	if err != nil {
		return 0, fmt.Errorf("failed to create window: %w", err)
	}

	if spec.Title != "" {
		// Both EWMH and ICCCM names so older window managers show it too.
		if err := ewmh.WmNameSet(c.XUtil, win.Id, spec.Title); err != nil {
			return 0, fmt.Errorf("failed to set _NET_WM_NAME: %w", err)
		}
		if err := icccm.WmNameSet(c.XUtil, win.Id, spec.Title); err != nil {
			return 0, fmt.Errorf("failed to set WM_NAME: %w", err)
		}
	}

	if err := icccm.WmProtocolsSet(c.XUtil, win.Id, []string{"WM_DELETE_WINDOW"}); err != nil {
		return 0, fmt.Errorf("failed to set WM_PROTOCOLS: %w", err)
	}

	if !spec.Resizable {
		hints := &icccm.NormalHints{
			Flags:     icccm.SizeHintPMinSize | icccm.SizeHintPMaxSize,
			MinWidth:  uint(spec.Width),
			MinHeight: uint(spec.Height),
			MaxWidth:  uint(spec.Width),
			MaxHeight: uint(spec.Height),
		}
		if err := icccm.WmNormalHintsSet(c.XUtil, win.Id, hints); err != nil {
			return 0, fmt.Errorf("failed to set size hints: %w", err)
		}
	}

	if !spec.Decorations {
		hints := &motif.Hints{
			Flags:      motif.HintDecorations,
			Decoration: motif.DecorationNone,
		}
		if err := motif.WmHintsSet(c.XUtil, win.Id, hints); err != nil {
			return 0, fmt.Errorf("failed to set motif hints: %w", err)
		}
	}

	if spec.Fullscreen {
		if err := ewmh.WmStateSet(c.XUtil, win.Id, []string{"_NET_WM_STATE_FULLSCREEN"}); err != nil {
			return 0, fmt.Errorf("failed to set fullscreen state: %w", err)
		}
	}

	return win.Id, nil
}

// MapWindow makes the window visible. The server answers with MapNotify.
func (c *Connection) MapWindow(w xproto.Window) {
	xwindow.New(c.XUtil, w).Map()
}

// DestroyWindow destroys the window. The server answers with DestroyNotify.
func (c *Connection) DestroyWindow(w xproto.Window) {
	xwindow.New(c.XUtil, w).Destroy()
}
