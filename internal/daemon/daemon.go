// Package daemon runs a backend behind the dispatcher, keeps the mirrored
// window table and serves it over IPC.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/winstate/internal/config"
	"github.com/1broseidon/winstate/internal/dispatch"
	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/ipc"
	"github.com/1broseidon/winstate/internal/lifecycle"
	"github.com/1broseidon/winstate/internal/platform"
	"github.com/1broseidon/winstate/internal/trace"
)

// Options configures a Daemon.
type Options struct {
	Config  *config.Config
	Backend platform.Backend
	Logger  *slog.Logger
	// Level, when set, follows log_level across reloads.
	Level *slog.LevelVar

	// ConfigPath is reloaded on RELOAD, SIGHUP and, with WatchConfig, on
	// every change to the file.
	ConfigPath  string
	WatchConfig bool

	// SocketPath enables the IPC server. Empty disables it.
	SocketPath string
	// RecordPath enables recording the event stream as a trace.
	RecordPath string
}

// Daemon ties a backend, the dispatcher and the mirrored window table
// together.
type Daemon struct {
	opts       Options
	dispatcher *dispatch.Dispatcher
	sync       *StateSynchronizer
	logger     *slog.Logger
	startTime  time.Time
	ready      chan struct{}

	cfgMu sync.RWMutex
	cfg   *config.Config
}

var _ ipc.Service = (*Daemon)(nil)

// New creates a daemon. It does not start anything.
func New(opts Options) *Daemon {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Level != nil {
		opts.Level.Set(cfg.SlogLevel())
	}

	return &Daemon{
		opts: opts,
		dispatcher: dispatch.New(opts.Backend, dispatch.Options{
			CloseWhenRequested: cfg.GetCloseWhenRequested(),
			Logger:             logger,
		}),
		sync:      NewStateSynchronizer(logger, cfg.EvictClosed),
		logger:    logger,
		startTime: time.Now(),
		ready:     make(chan struct{}),
		cfg:       cfg,
	}
}

// Ready is closed once Run is serving IPC and every internal consumer is
// subscribed.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config {
	d.cfgMu.RLock()
	defer d.cfgMu.RUnlock()
	return d.cfg
}

// Run drives the daemon until ctx is cancelled or the backend stops.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.Config()

	if d.opts.SocketPath != "" {
		server := ipc.NewServerAt(d.opts.SocketPath, d)
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start IPC server: %w", err)
		}
		defer server.Stop()
	}

	// Subscribe before the backend starts so no event is missed.
	stateSub := d.dispatcher.Subscribe("state")
	var workers sync.WaitGroup

	workers.Add(1)
	go func() {
		defer workers.Done()
		// Drains after ctx ends so the table reflects every delivered event.
		dispatch.Fold(context.Background(), stateSub, d.sync,
			lifecycle.WithEvictClosed(cfg.EvictClosed),
			lifecycle.WithLogger(d.logger))
	}()

	if d.opts.RecordPath != "" {
		recSub := d.dispatcher.Subscribe("recorder")
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := trace.Record(context.Background(), d.opts.RecordPath, recSub, d.logger); err != nil {
				d.logger.Error("recorder failed", "error", err)
				recSub.Close()
			}
		}()
	}

	if interval := cfg.GetReconcileInterval(); interval > 0 {
		reconciler := NewReconciler(ReconcilerConfig{
			Interval: interval,
			Logger:   d.logger,
		}, d.sync, d.opts.Backend.Windows)
		go reconciler.Run(ctx)
	}

	if d.opts.WatchConfig && d.opts.ConfigPath != "" {
		watcher, err := config.NewWatcher(d.opts.ConfigPath, d.logger)
		if err != nil {
			d.logger.Warn("config hot reload disabled", "error", err)
		} else {
			go watcher.Run(ctx, d.apply)
		}
	}

	d.logger.Info("winstate daemon started", "backend", d.opts.Backend.Name())
	close(d.ready)
	err := d.dispatcher.Run(ctx)
	workers.Wait()
	d.logger.Info("winstate daemon stopped")
	return err
}

// Reload re-reads the configuration file and applies it.
func (d *Daemon) Reload() error {
	path := d.opts.ConfigPath
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return err
	}
	d.apply(res.Config)
	return nil
}

// apply switches to cfg. Backend, display and reconcile_interval only take
// effect on restart.
func (d *Daemon) apply(cfg *config.Config) {
	d.cfgMu.Lock()
	old := d.cfg
	d.cfg = cfg
	d.cfgMu.Unlock()

	d.dispatcher.SetCloseWhenRequested(cfg.GetCloseWhenRequested())
	d.sync.SetEvictClosed(cfg.EvictClosed)
	if d.opts.Level != nil {
		d.opts.Level.Set(cfg.SlogLevel())
	}

	if old.Backend != cfg.Backend || old.Display != cfg.Display || old.ReconcileInterval != cfg.ReconcileInterval {
		d.logger.Warn("backend, display and reconcile_interval changes need a restart")
	}
	d.logger.Info("config applied",
		"close_when_requested", cfg.GetCloseWhenRequested(),
		"evict_closed", cfg.EvictClosed,
		"log_level", cfg.LogLevel)
}

// Status reports daemon counters.
func (d *Daemon) Status() ipc.StatusData {
	counts := d.sync.Counts()
	total := 0
	for _, n := range counts {
		total += n
	}
	return ipc.StatusData{
		Backend:            d.opts.Backend.Name(),
		UptimeSeconds:      int64(time.Since(d.startTime).Seconds()),
		DaemonRunning:      true,
		CloseWhenRequested: d.dispatcher.CloseWhenRequested(),
		Windows:            total,
		States:             counts,
		Violations:         d.sync.Violations(),
		Events:             d.dispatcher.Published(),
		Subscribers:        d.dispatcher.Subscribers(),
	}
}

func (d *Daemon) Windows() []lifecycle.Record {
	return d.sync.Records()
}

func (d *Daemon) Window(id event.WindowID) (lifecycle.Record, bool) {
	return d.sync.Record(id)
}

// CreateWindow opens a window. nil uses default_window.
func (d *Daemon) CreateWindow(ctx context.Context, desc *event.Descriptor) (event.WindowID, error) {
	var use event.Descriptor
	if desc != nil {
		use = desc.Clone()
	} else {
		use = d.Config().DefaultWindow.Clone()
	}
	return d.dispatcher.CreateWindow(ctx, use)
}

func (d *Daemon) CloseWindow(ctx context.Context, id event.WindowID) error {
	return d.dispatcher.CloseWindow(ctx, id)
}

func (d *Daemon) Subscribe(name string) *dispatch.Subscription {
	return d.dispatcher.Subscribe(name)
}
