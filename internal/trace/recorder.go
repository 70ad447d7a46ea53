package trace

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/1broseidon/winstate/internal/dispatch"
)

// Record appends every event of sub to the trace file at path until the
// subscription ends or ctx is cancelled. The file is truncated first.
func Record(ctx context.Context, path string, sub *dispatch.Subscription, logger *slog.Logger) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close trace: %w", cerr)
		}
	}()

	logger.Info("recording events", "path", path)
	n, err := recordTo(ctx, f, sub, logger)
	logger.Info("recording stopped", "path", path, "events", n)
	return err
}

// recordTo writes events to out and returns how many were recorded.
func recordTo(ctx context.Context, out io.Writer, sub *dispatch.Subscription, logger *slog.Logger) (n int, err error) {
	w := bufio.NewWriter(out)
	defer func() {
		if ferr := w.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("failed to write trace: %w", ferr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return n, nil
		case ev, ok := <-sub.Events():
			if !ok {
				return n, nil
			}
			if err := writeOne(w, ev); err != nil {
				logger.Warn("failed to record event", "kind", ev.Kind().String(), "error", err)
				continue
			}
			n++
			// Keep the file readable while the daemon runs.
			if err := w.Flush(); err != nil {
				return n, fmt.Errorf("failed to write trace: %w", err)
			}
		}
	}
}
