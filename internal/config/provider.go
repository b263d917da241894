package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Provider hands out configuration snapshots and swaps in a new one on reload.
// A snapshot returned by Current is never mutated, so in-flight work keeps a consistent view.
type Provider struct {
	path    string
	current atomic.Pointer[Config]
	mu      sync.Mutex // serializes Reload and Save
	logger  *logrus.Logger
}

// NewProvider loads and validates the initial snapshot.
func NewProvider(path string, logger *logrus.Logger) (*Provider, error) {
	p := &Provider{path: path, logger: logger}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	p.current.Store(cfg)
	return p, nil
}

// Current returns the active snapshot
func (p *Provider) Current() *Config {
	return p.current.Load()
}

// Reload re-reads the configuration. An invalid result is rejected and the previous snapshot stays active.
func (p *Provider) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloadLocked()
}

func (p *Provider) reloadLocked() error {
	cfg, err := Load(p.path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	p.current.Store(cfg)
	p.logger.WithField("path", p.path).Info("Configuration reloaded")
	return nil
}

// Save merges values (keyed by environment name) into the dotenv file and reloads.
func (p *Provider) Save(values map[string]string) error {
	if p.path == "" {
		return fmt.Errorf("no config file configured")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// A bare viper (no env, no defaults) so only file contents and the new values are written.
	v := viper.New()
	v.SetConfigFile(p.path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("failed to read config %s: %w", p.path, err)
		}
	}
	for key, value := range values {
		v.Set(strings.ToLower(key), value)
	}

	// The merged file is validated before it replaces the live one. A rejected save
	// leaves the live file untouched.
	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".config-*.env")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := v.WriteConfigAs(tmpPath); err != nil {
		return fmt.Errorf("failed to write config %s: %w", p.path, err)
	}

	cfg, err := Load(tmpPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.Rename(tmpPath, p.path); err != nil {
		return fmt.Errorf("failed to replace config %s: %w", p.path, err)
	}
	p.current.Store(cfg)
	p.logger.WithField("path", p.path).Info("Configuration saved")
	return nil
}

// Watch reloads the snapshot whenever the config file changes and calls onChange with the new one.
func (p *Provider) Watch(onChange func(*Config)) {
	if p.path == "" {
		return
	}
	v := viper.New()
	v.SetConfigFile(p.path)
	v.SetConfigType("env")
	v.OnConfigChange(func(e fsnotify.Event) {
		if err := p.Reload(); err != nil {
			p.logger.WithError(err).WithField("event", e.Op.String()).Warn("Ignoring config change")
			return
		}
		if onChange != nil {
			onChange(p.Current())
		}
	})
	v.WatchConfig()
}
