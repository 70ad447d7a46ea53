package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk.
type Watcher struct {
	path   string
	w      *fsnotify.Watcher
	logger *slog.Logger
}

// NewWatcher watches the directory containing path. Editors usually replace
// the file rather than write it in place, so the file itself is not watched.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	w0, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w0.Add(filepath.Dir(abs)); err != nil {
		w0.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: abs, w: w0, logger: logger}, nil
}

// Run calls apply with each successfully reloaded config until ctx is done.
// Invalid files are logged and the previous config stays in effect.
func (w *Watcher) Run(ctx context.Context, apply func(*Config)) error {
	defer w.w.Close()

	timer := time.NewTimer(reloadDelay)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)

		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Coalesce the bursts editors produce on save.
			timer.Reset(reloadDelay)

		case <-timer.C:
			res, err := LoadFromPath(w.path)
			if err != nil {
				w.logger.Warn("config reload failed", "path", w.path, "error", err)
				continue
			}
			w.logger.Info("config reloaded", "path", w.path)
			apply(res.Config)
		}
	}
}
