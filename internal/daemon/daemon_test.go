package daemon

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/1broseidon/winstate/internal/config"
	"github.com/1broseidon/winstate/internal/dispatch"
	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/ipc"
	"github.com/1broseidon/winstate/internal/lifecycle"
	"github.com/1broseidon/winstate/internal/platform"
	"github.com/1broseidon/winstate/internal/trace"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func stateIs(d *Daemon, id event.WindowID, st lifecycle.State) func() bool {
	return func() bool {
		rec, ok := d.Window(id)
		return ok && rec.State == st
	}
}

func startDaemon(t *testing.T, opts Options) (*Daemon, *platform.Scripted) {
	t.Helper()
	backend := platform.NewScripted()
	opts.Backend = backend
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
		opts.Config.Backend = config.BackendScripted
		opts.Config.ReconcileInterval = 0
	}
	d := New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		case <-time.After(3 * time.Second):
			t.Error("daemon did not stop")
		}
	})

	select {
	case <-d.Ready():
	case err := <-done:
		t.Fatalf("daemon exited before ready: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not become ready")
	}
	return d, backend
}

func TestDaemon_CloseWhenRequested(t *testing.T) {
	d, backend := startDaemon(t, Options{})
	ctx := context.Background()

	id, err := d.CreateWindow(ctx, nil)
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	eventually(t, "window live", stateIs(d, id, lifecycle.StateLive))

	rec, _ := d.Window(id)
	if rec.Descriptor.Title != "app" || rec.Size.Width != 1280 {
		t.Fatalf("record = %+v", rec)
	}

	if err := backend.RequestClose(id); err != nil {
		t.Fatalf("RequestClose: %v", err)
	}
	eventually(t, "window closed", stateIs(d, id, lifecycle.StateClosed))

	status := d.Status()
	if status.Windows != 1 || status.States["closed"] != 1 || status.Violations != 0 {
		t.Fatalf("status = %+v", status)
	}
	if !status.CloseWhenRequested || status.Backend != "scripted" {
		t.Fatalf("status = %+v", status)
	}
}

func TestDaemon_ManualCloseWhenPolicyDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	off := false
	cfg.CloseWhenRequested = &off
	cfg.ReconcileInterval = 0
	d, backend := startDaemon(t, Options{Config: cfg})
	ctx := context.Background()

	id, err := d.CreateWindow(ctx, nil)
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	eventually(t, "window live", stateIs(d, id, lifecycle.StateLive))

	backend.RequestClose(id)
	eventually(t, "close requested", stateIs(d, id, lifecycle.StateCloseRequested))

	// Still waiting for the application to decide.
	time.Sleep(50 * time.Millisecond)
	if rec, _ := d.Window(id); rec.State != lifecycle.StateCloseRequested {
		t.Fatalf("state = %v, want close-requested", rec.State)
	}

	if err := d.CloseWindow(ctx, id); err != nil {
		t.Fatalf("CloseWindow: %v", err)
	}
	eventually(t, "window closed", stateIs(d, id, lifecycle.StateClosed))
}

func TestDaemon_ViolationsAreCountedAndSkipped(t *testing.T) {
	d, backend := startDaemon(t, Options{})

	backend.Inject(
		event.WindowResized{ID: 42, Width: 1, Height: 1},
		event.CreateWindow{ID: 7, Descriptor: event.DefaultDescriptor()},
		event.WindowFocused{ID: 7, Focused: true},
		event.WindowCreated{ID: 7},
	)
	eventually(t, "window 7 live", stateIs(d, 7, lifecycle.StateLive))
	eventually(t, "violations counted", func() bool { return d.Status().Violations == 2 })

	if rec, _ := d.Window(7); rec.Focused {
		t.Fatalf("focus before creation was applied")
	}
}

func TestDaemon_EvictClosed(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.EvictClosed = true
	cfg.ReconcileInterval = 0
	d, _ := startDaemon(t, Options{Config: cfg})
	ctx := context.Background()

	id, _ := d.CreateWindow(ctx, nil)
	eventually(t, "window live", stateIs(d, id, lifecycle.StateLive))
	if err := d.CloseWindow(ctx, id); err != nil {
		t.Fatalf("CloseWindow: %v", err)
	}
	eventually(t, "window evicted", func() bool {
		_, ok := d.Window(id)
		return !ok
	})
}

func TestDaemon_ReloadAppliesPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backend: scripted\nreconcile_interval: 0\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	level := new(slog.LevelVar)
	d, _ := startDaemon(t, Options{ConfigPath: path, Level: level})

	if err := os.WriteFile(path, []byte("backend: scripted\nreconcile_interval: 0\nclose_when_requested: false\nlog_level: debug\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := d.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if d.Status().CloseWhenRequested {
		t.Fatalf("close_when_requested still true after reload")
	}
	if level.Level() != slog.LevelDebug {
		t.Fatalf("level = %v, want debug", level.Level())
	}

	if err := os.WriteFile(path, []byte("backend: gtk\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := d.Reload(); err == nil {
		t.Fatalf("expected invalid config to fail reload")
	}
	if d.Config().GetCloseWhenRequested() {
		t.Fatalf("failed reload replaced config")
	}
}

func TestDaemon_ServesIPC(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "d.sock")
	d, _ := startDaemon(t, Options{SocketPath: socket})
	if _, err := os.Stat(socket); err != nil {
		t.Fatalf("socket missing once ready: %v", err)
	}
	client := ipc.NewClientAt(socket)

	desc := event.DefaultDescriptor()
	desc.Title = "over ipc"
	id, err := client.CreateWindow(&desc)
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	eventually(t, "window live", stateIs(d, id, lifecycle.StateLive))

	windows, err := client.ListWindows()
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}
	if len(windows) != 1 || windows[0].Descriptor.Title != "over ipc" {
		t.Fatalf("windows = %+v", windows)
	}

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.States["live"] != 1 || status.Subscribers < 1 {
		t.Fatalf("status = %+v", status)
	}
}

func TestDaemon_RecordsTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.yaml")
	backend := platform.NewScripted()
	cfg := config.DefaultConfig()
	cfg.ReconcileInterval = 0
	d := New(Options{Config: cfg, Backend: backend, Logger: testLogger(), RecordPath: path})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	id, err := d.CreateWindow(context.Background(), nil)
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	backend.Type(id, "ok")
	eventually(t, "chars folded", func() bool {
		rec, _ := d.Window(id)
		return rec.Chars == 2
	})
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	evs, err := trace.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	report := trace.Replay(evs)
	if len(report.Violations) != 0 || len(report.Records) != 1 || report.Records[0].Chars != 2 {
		t.Fatalf("replayed report = %+v", report)
	}
}

func TestReconciler_ReportsDrift(t *testing.T) {
	s := NewStateSynchronizer(testLogger(), false)
	m := lifecycle.NewModel()
	h := dispatch.HandlerFuncs{Window: s.HandleWindow}
	for _, ev := range []event.Event{
		event.CreateWindow{ID: 1, Descriptor: event.DefaultDescriptor()},
		event.WindowCreated{ID: 1},
		event.CreateWindow{ID: 2, Descriptor: event.DefaultDescriptor()},
		event.WindowCreated{ID: 2},
		event.CreateWindow{ID: 3, Descriptor: event.DefaultDescriptor()},
	} {
		dispatch.Step(m, ev, h)
	}

	lister := func(context.Context) ([]event.WindowID, error) {
		return []event.WindowID{2, 3, 9}, nil
	}
	r := NewReconciler(ReconcilerConfig{Logger: testLogger()}, s, lister)
	drift := r.ReconcileNow(context.Background())

	if len(drift.Missing) != 1 || drift.Missing[0] != 1 {
		t.Fatalf("missing = %v, want [#1]", drift.Missing)
	}
	if len(drift.Untracked) != 1 || drift.Untracked[0] != 9 {
		t.Fatalf("untracked = %v, want [#9]", drift.Untracked)
	}

	agree := NewReconciler(ReconcilerConfig{Logger: testLogger()}, s, func(context.Context) ([]event.WindowID, error) {
		return []event.WindowID{1, 2}, nil
	})
	if d := agree.ReconcileNow(context.Background()); !d.Empty() {
		t.Fatalf("expected no drift, got %+v", d)
	}
}

func TestReconciler_RecoversFromPanic(t *testing.T) {
	s := NewStateSynchronizer(testLogger(), false)
	r := NewReconciler(ReconcilerConfig{Logger: testLogger()}, s, func(context.Context) ([]event.WindowID, error) {
		panic("lister exploded")
	})
	if d := r.ReconcileNow(context.Background()); !d.Empty() {
		t.Fatalf("expected empty drift, got %+v", d)
	}
}
