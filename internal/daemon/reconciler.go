package daemon

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/lifecycle"
)

// WindowLister returns the identities of windows the backend owns.
type WindowLister func(ctx context.Context) ([]event.WindowID, error)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Drift is the difference between the mirrored view and the backend.
type Drift struct {
	// Missing windows are live in the mirror but unknown to the backend.
	Missing []event.WindowID
	// Untracked windows exist in the backend but not as live in the mirror.
	Untracked []event.WindowID
}

// Empty reports whether the views agree.
func (d Drift) Empty() bool {
	return len(d.Missing) == 0 && len(d.Untracked) == 0
}

// Reconciler periodically compares the mirrored window table with the
// backend and reports drift. It never edits the mirror: only the event
// stream changes window state.
type Reconciler struct {
	interval    time.Duration
	sync        *StateSynchronizer
	listWindows WindowLister
	logger      *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, sync *StateSynchronizer, listWindows WindowLister) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &Reconciler{
		interval:    interval,
		sync:        sync,
		listWindows: listWindows,
		logger:      cfg.Logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile(ctx context.Context) (drift Drift) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	actual, err := r.listWindows(ctx)
	if err != nil {
		r.logger.Error("reconciler: failed to list windows", "error", err)
		return Drift{}
	}

	actualIDs := make(map[event.WindowID]bool, len(actual))
	for _, id := range actual {
		actualIDs[id] = true
	}
	expected := r.sync.Existing()

	for id := range expected {
		if !actualIDs[id] {
			drift.Missing = append(drift.Missing, id)
		}
	}
	for id := range actualIDs {
		if _, ok := expected[id]; !ok {
			// Requested windows may not have been confirmed yet.
			if rec, known := r.sync.Record(id); known && rec.State == lifecycle.StateRequested {
				continue
			}
			drift.Untracked = append(drift.Untracked, id)
		}
	}
	sortIDs(drift.Missing)
	sortIDs(drift.Untracked)

	for _, id := range drift.Missing {
		r.logger.Warn("reconciler: window missing from backend", "window_id", uint32(id), "state", expected[id].String())
	}
	for _, id := range drift.Untracked {
		r.logger.Warn("reconciler: backend window not tracked", "window_id", uint32(id))
	}
	return drift
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow(ctx context.Context) Drift {
	return r.reconcile(ctx)
}

func sortIDs(ids []event.WindowID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
