// Package config provides the server configuration file and its hot reload.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Tunables are the gameplay knobs. Defaults match the authoritative rules;
// a config file exists so a private deployment can retune them.
type Tunables struct {
	PillCapacity         int `json:"pill_capacity"`
	SpawnRampMS          int `json:"spawn_ramp_ms"`
	SpawnIntervalMS      int `json:"spawn_interval_ms"`
	MoveIntervalMS       int `json:"move_interval_ms"`
	RespawnDelayMS       int `json:"respawn_delay_ms"`
	TokenTTLHours        int `json:"token_ttl_hours"`
	FlushIntervalSeconds int `json:"flush_interval_seconds"`
}

// Config is the persisted server configuration.
type Config struct {
	ListenAddr string   `json:"listen_addr"`
	DataDir    string   `json:"data_dir"`
	Game       Tunables `json:"game"`
}

// DefaultConfig returns a Config with every field at its default.
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8080",
		DataDir:    "data",
		Game: Tunables{
			PillCapacity:         30,
			SpawnRampMS:          100,
			SpawnIntervalMS:      500,
			MoveIntervalMS:       16,
			RespawnDelayMS:       3000,
			TokenTTLHours:        24,
			FlushIntervalSeconds: 30,
		},
	}
}

// SpawnRamp returns the ramp-up spawn interval as a duration.
func (t Tunables) SpawnRamp() time.Duration {
	return time.Duration(t.SpawnRampMS) * time.Millisecond
}

// SpawnInterval returns the steady-state spawn interval as a duration.
func (t Tunables) SpawnInterval() time.Duration {
	return time.Duration(t.SpawnIntervalMS) * time.Millisecond
}

// MoveInterval returns the per-connection move rate limit as a duration.
func (t Tunables) MoveInterval() time.Duration {
	return time.Duration(t.MoveIntervalMS) * time.Millisecond
}

// RespawnDelay returns the respawn delay as a duration.
func (t Tunables) RespawnDelay() time.Duration {
	return time.Duration(t.RespawnDelayMS) * time.Millisecond
}

// TokenTTL returns the session token lifetime as a duration.
func (t Tunables) TokenTTL() time.Duration {
	return time.Duration(t.TokenTTLHours) * time.Hour
}

// FlushInterval returns the ledger flush interval as a duration.
func (t Tunables) FlushInterval() time.Duration {
	return time.Duration(t.FlushIntervalSeconds) * time.Second
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr is required")
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if c.Game.PillCapacity <= 0 {
		return errors.New("game.pill_capacity must be positive")
	}
	if c.Game.SpawnRampMS <= 0 {
		return errors.New("game.spawn_ramp_ms must be positive")
	}
	if c.Game.SpawnIntervalMS <= 0 {
		return errors.New("game.spawn_interval_ms must be positive")
	}
	if c.Game.MoveIntervalMS < 0 {
		return errors.New("game.move_interval_ms cannot be negative")
	}
	if c.Game.RespawnDelayMS < 0 {
		return errors.New("game.respawn_delay_ms cannot be negative")
	}
	if c.Game.TokenTTLHours <= 0 {
		return errors.New("game.token_ttl_hours must be positive")
	}
	if c.Game.FlushIntervalSeconds <= 0 {
		return errors.New("game.flush_interval_seconds must be positive")
	}
	return nil
}

// LoadConfig loads the configuration from a JSON file. A missing file yields
// the defaults; a malformed or invalid file is an error so a typo never
// silently reverts a deployment to defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Manager owns the live configuration and its file watcher.
type Manager struct {
	path     string
	onReload func(Config)

	mu  sync.Mutex
	cfg Config

	watcherMu sync.Mutex
	watcher   *fsnotify.Watcher
}

// NewManager loads the file at path and returns a manager around it.
// onReload, when non-nil, runs after every successful reload.
func NewManager(path string, onReload func(Config)) (*Manager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &Manager{path: path, cfg: cfg, onReload: onReload}, nil
}

// Get returns the current configuration.
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Reload re-reads the config file and applies it.
func (m *Manager) Reload() error {
	cfg, err := LoadConfig(m.path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.cfg = cfg
	callback := m.onReload
	m.mu.Unlock()

	if callback != nil {
		callback(cfg)
	}
	return nil
}

// Watch starts watching the config file and reloads on write or create.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	m.watcherMu.Lock()
	m.watcher = watcher
	m.watcherMu.Unlock()

	// The file must exist before it can be watched.
	if _, err := os.Stat(m.path); os.IsNotExist(err) {
		if dir := filepath.Dir(m.path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				m.closeWatcher()
				return fmt.Errorf("failed to create config dir: %w", err)
			}
		}
		if err := m.Get().Save(m.path); err != nil {
			m.closeWatcher()
			return fmt.Errorf("failed to seed config file: %w", err)
		}
	}

	if err := watcher.Add(m.path); err != nil {
		m.closeWatcher()
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	go func() {
		defer m.closeWatcher()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write == fsnotify.Write ||
					event.Op&fsnotify.Create == fsnotify.Create {
					// Small delay so the writer finishes before we read.
					time.Sleep(100 * time.Millisecond)
					if err := m.Reload(); err != nil {
						fmt.Printf("config reload error: %v\n", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				fmt.Printf("config watcher error: %v\n", err)
			}
		}
	}()

	return nil
}

// StopWatch stops watching the configuration file.
func (m *Manager) StopWatch() {
	m.closeWatcher()
}

func (m *Manager) closeWatcher() {
	m.watcherMu.Lock()
	defer m.watcherMu.Unlock()
	if m.watcher != nil {
		m.watcher.Close()
		m.watcher = nil
	}
}
