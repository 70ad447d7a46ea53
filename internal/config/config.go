package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/winstate/internal/event"
)

// Backend names.
const (
	BackendX11      = "x11"
	BackendScripted = "scripted"
)

const DefaultReconcileInterval = 10 // seconds

// Config holds the application configuration.
type Config struct {
	// CloseWhenRequested destroys a window as soon as the window system asks
	// for it to be closed. Default: true
	CloseWhenRequested *bool `yaml:"close_when_requested"`

	// EvictClosed drops closed windows from the daemon's window list.
	EvictClosed bool `yaml:"evict_closed"`

	Backend           string           `yaml:"backend"`
	Display           string           `yaml:"display,omitempty"`
	LogLevel          string           `yaml:"log_level"`
	ReconcileInterval int              `yaml:"reconcile_interval"` // seconds, 0 disables
	DefaultWindow     event.Descriptor `yaml:"default_window"`
}

func DefaultConfig() *Config {
	return &Config{
		// CloseWhenRequested defaults to true via getter
		Backend:           BackendX11,
		LogLevel:          "info",
		ReconcileInterval: DefaultReconcileInterval,
		DefaultWindow:     event.DefaultDescriptor(),
	}
}

// GetCloseWhenRequested returns the effective value, defaulting to true.
func (c *Config) GetCloseWhenRequested() bool {
	if c == nil || c.CloseWhenRequested == nil {
		return true
	}
	return *c.CloseWhenRequested
}

// GetReconcileInterval returns the drift check period. Zero disables it.
func (c *Config) GetReconcileInterval() time.Duration {
	if c == nil || c.ReconcileInterval <= 0 {
		return 0
	}
	return time.Duration(c.ReconcileInterval) * time.Second
}

// SlogLevel maps log_level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendX11, BackendScripted:
	default:
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: %s, %s", BackendX11, BackendScripted)}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.ReconcileInterval < 0 {
		return &ValidationError{Path: "reconcile_interval", Err: fmt.Errorf("reconcile_interval must be >= 0")}
	}
	if strings.TrimSpace(c.DefaultWindow.Title) == "" {
		return &ValidationError{Path: "default_window.title", Err: fmt.Errorf("title must not be empty")}
	}
	if err := c.DefaultWindow.Validate(); err != nil {
		return &ValidationError{Path: "default_window", Err: err}
	}
	return nil
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
