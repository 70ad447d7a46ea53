package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at a YAML path and where it came from.
//
// Supported paths:
//
//	close_when_requested
//	evict_closed
//	backend
//	display
//	log_level
//	reconcile_interval
//	default_window
//	default_window.<field>
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	if len(parts) > 2 || (len(parts) == 2 && parts[0] != "default_window") {
		return nil, fmt.Errorf("unknown path %q", path)
	}

	switch parts[0] {
	case "close_when_requested":
		return cfg.GetCloseWhenRequested(), nil
	case "evict_closed":
		return cfg.EvictClosed, nil
	case "backend":
		return cfg.Backend, nil
	case "display":
		return cfg.Display, nil
	case "log_level":
		return cfg.LogLevel, nil
	case "reconcile_interval":
		return cfg.ReconcileInterval, nil
	case "default_window":
		if len(parts) == 1 {
			return cfg.DefaultWindow, nil
		}
	default:
		return nil, fmt.Errorf("unknown path %q", path)
	}

	d := cfg.DefaultWindow
	switch parts[1] {
	case "title":
		return d.Title, nil
	case "width":
		return d.Width, nil
	case "height":
		return d.Height, nil
	case "position":
		return d.Position, nil
	case "resizable":
		return d.Resizable, nil
	case "decorations":
		return d.Decorations, nil
	case "cursor_visible":
		return d.CursorVisible, nil
	case "cursor_locked":
		return d.CursorLocked, nil
	case "mode":
		return d.Mode, nil
	case "scale_factor_override":
		return d.ScaleFactorOverride, nil
	case "transparent":
		return d.Transparent, nil
	case "vsync":
		return d.VSync, nil
	}
	return nil, fmt.Errorf("unknown path %q", path)
}
