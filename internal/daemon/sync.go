package daemon

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/1broseidon/winstate/internal/dispatch"
	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/lifecycle"
)

// StateSynchronizer mirrors the folded event stream into a window table
// that IPC handlers can read concurrently.
type StateSynchronizer struct {
	logger *slog.Logger

	mu          sync.RWMutex
	records     map[event.WindowID]lifecycle.Record
	evictClosed bool
	violations  int
	redraws     int
	lastSeq     uint64
}

var _ dispatch.Handler = (*StateSynchronizer)(nil)

// NewStateSynchronizer creates an empty synchronizer.
func NewStateSynchronizer(logger *slog.Logger, evictClosed bool) *StateSynchronizer {
	return &StateSynchronizer{
		logger:      logger,
		records:     make(map[event.WindowID]lifecycle.Record),
		evictClosed: evictClosed,
	}
}

// HandleWindow stores the record produced by a window-scoped event.
func (s *StateSynchronizer) HandleWindow(u dispatch.Update) {
	if u.Err != nil {
		var v *lifecycle.Violation
		if errors.As(u.Err, &v) {
			s.logger.Warn("lifecycle violation",
				"window_id", uint32(v.Window),
				"event", v.Event.Kind().String(),
				"state", v.State.String(),
				"error", v.Err)
		} else {
			s.logger.Warn("lifecycle error", "error", u.Err)
		}
		s.mu.Lock()
		s.violations++
		s.mu.Unlock()
		return
	}

	rec := u.Record
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeq = rec.Updated

	if rec.State == lifecycle.StateClosed {
		s.logger.Info("window closed", "window_id", uint32(rec.ID), "title", rec.Descriptor.Title)
		if s.evictClosed {
			delete(s.records, rec.ID)
			return
		}
	}
	if _, known := s.records[rec.ID]; !known {
		s.logger.Info("window requested", "window_id", uint32(rec.ID), "title", rec.Descriptor.Title)
	}
	if u.Event.Kind() == event.KindWindowCreated {
		s.logger.Info("window live", "window_id", uint32(rec.ID))
	}
	s.records[rec.ID] = rec
}

// HandleGlobal handles process-wide events.
func (s *StateSynchronizer) HandleGlobal(ev event.Event) {
	if ev.Kind() == event.KindRequestRedraw {
		s.mu.Lock()
		s.redraws++
		s.mu.Unlock()
		s.logger.Debug("redraw requested")
	}
}

// SetEvictClosed changes whether closed windows are dropped. Records that
// are already closed are dropped when enabling it.
func (s *StateSynchronizer) SetEvictClosed(evict bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictClosed = evict
	if !evict {
		return
	}
	for id, rec := range s.records {
		if rec.State == lifecycle.StateClosed {
			delete(s.records, id)
		}
	}
}

// Records returns every tracked window ordered by identity.
func (s *StateSynchronizer) Records() []lifecycle.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]lifecycle.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Record returns the tracked record for id.
func (s *StateSynchronizer) Record(id event.WindowID) (lifecycle.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Existing returns the identities the backend should currently know about:
// windows that are live or waiting to close.
func (s *StateSynchronizer) Existing() map[event.WindowID]lifecycle.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[event.WindowID]lifecycle.State)
	for id, rec := range s.records {
		if rec.State.Exists() {
			out[id] = rec.State
		}
	}
	return out
}

// Counts returns window counts by state name.
func (s *StateSynchronizer) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int)
	for _, rec := range s.records {
		out[rec.State.String()]++
	}
	return out
}

// Violations returns the number of rejected events.
func (s *StateSynchronizer) Violations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.violations
}

// Redraws returns the number of redraw requests seen.
func (s *StateSynchronizer) Redraws() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redraws
}
