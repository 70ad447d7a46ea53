package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/winstate/internal/config"
	"github.com/1broseidon/winstate/internal/daemon"
	"github.com/1broseidon/winstate/internal/platform"
	"github.com/1broseidon/winstate/internal/runtimepath"
)

func runDaemon(args []string) int {
	fs := newFlagSet("daemon", "winstate daemon [flags]", "Run the window state daemon in the foreground.")
	path := fs.String("path", "", "Config file path (default: ~/.config/winstate/config.yaml)")
	backendName := fs.String("backend", "", "Override config backend (x11, scripted)")
	socket := fs.String("socket", "", "IPC socket path (default: $XDG_RUNTIME_DIR/winstate.sock)")
	record := fs.Bool("record", false, "Record every dispatched event to a trace file")
	recordPath := fs.String("record-path", "", "Trace file for --record (default: $XDG_RUNTIME_DIR/winstate-trace.yaml)")
	watch := fs.Bool("watch", true, "Reload the config file when it changes")
	if rc := parseFlags(fs, args); rc >= 0 {
		return rc
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	cfgPath := *path
	if cfgPath == "" {
		var err error
		if cfgPath, err = config.DefaultConfigPath(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	res, err := config.LoadFromPath(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config
	if *backendName != "" {
		cfg.Backend = *backendName
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}

	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if res.File != "" {
		logger.Info("configuration loaded", "path", res.File)
	} else {
		logger.Info("no config file, using defaults", "path", cfgPath)
	}

	backend, err := newBackend(cfg, logger)
	if err != nil {
		logger.Error("failed to start backend", "backend", cfg.Backend, "error", err)
		return 1
	}

	socketPath := *socket
	if socketPath == "" {
		if socketPath, err = runtimepath.SocketPath(); err != nil {
			logger.Error("failed to resolve socket path", "error", err)
			return 1
		}
	}

	var tracePath string
	if *record {
		tracePath = *recordPath
		if tracePath == "" {
			if tracePath, err = runtimepath.RecordingPath(); err != nil {
				logger.Error("failed to resolve trace path", "error", err)
				return 1
			}
		}
	}

	d := daemon.New(daemon.Options{
		Config:      cfg,
		Backend:     backend,
		Logger:      logger,
		Level:       level,
		ConfigPath:  cfgPath,
		WatchConfig: *watch,
		SocketPath:  socketPath,
		RecordPath:  tracePath,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := d.Reload(); err != nil {
					logger.Error("reload failed", "error", err)
				}
			}
		}
	}()

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon stopped with error", "error", err)
		return 1
	}
	return 0
}

func newBackend(cfg *config.Config, logger *slog.Logger) (platform.Backend, error) {
	switch cfg.Backend {
	case config.BackendScripted:
		return platform.NewScripted(), nil
	case config.BackendX11, "":
		return platform.NewLinuxBackend(cfg.Display, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
