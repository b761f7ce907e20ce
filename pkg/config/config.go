// Package config handles loading and saving bu configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/bu/config.yaml
//   - State:   ~/.local/state/bu/ (log file)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppName names the XDG subdirectories.
const AppName = "bu"

// Defaults.
const (
	DefaultRefreshInterval = 3 * time.Second
	DefaultPageSize        = 10
	DefaultSplitRatio      = 0.5
	DefaultCommand         = "br"
	DefaultCommandTimeout  = 30 * time.Second
)

// UIConfig holds UI preference settings.
type UIConfig struct {
	PageSize   int     `yaml:"page_size,omitempty"`
	SplitRatio float64 `yaml:"split_ratio,omitempty"` // list pane share (0.2-0.8)
	Theme      string  `yaml:"theme,omitempty"`       // lazygit, tokyo-night, dracula, nord
	ShowClosed bool    `yaml:"show_closed,omitempty"`
	ShowLabels *bool   `yaml:"show_labels,omitempty"`
}

// ExecutorConfig configures the command-line tool that applies mutations.
type ExecutorConfig struct {
	Command string        `yaml:"command,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Config is the top-level configuration for bu.
type Config struct {
	// RefreshInterval is the periodic reload cadence. Zero disables it.
	RefreshInterval *time.Duration `yaml:"refresh_interval,omitempty"`
	Watch           *bool          `yaml:"watch,omitempty"`
	UI              UIConfig       `yaml:"ui,omitempty"`
	Executor        ExecutorConfig `yaml:"executor,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			PageSize:   DefaultPageSize,
			SplitRatio: DefaultSplitRatio,
		},
		Executor: ExecutorConfig{
			Command: DefaultCommand,
			Timeout: DefaultCommandTimeout,
		},
	}
}

// Refresh returns the effective refresh interval.
func (c Config) Refresh() time.Duration {
	if c.RefreshInterval == nil {
		return DefaultRefreshInterval
	}
	if *c.RefreshInterval < 0 {
		return 0
	}
	return *c.RefreshInterval
}

// WatchEnabled reports whether file watching is on (default true).
func (c Config) WatchEnabled() bool {
	return c.Watch == nil || *c.Watch
}

// LabelsVisible reports whether list rows show labels (default true).
func (c Config) LabelsVisible() bool {
	return c.UI.ShowLabels == nil || *c.UI.ShowLabels
}

// SplitPercent returns the list pane share as a whole percentage.
func (c Config) SplitPercent() int {
	return int(c.UI.SplitRatio*100 + 0.5)
}

// ConfigDir returns the XDG config directory for bu.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName)
}

// StateDir returns the XDG state directory for bu.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", AppName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// LogPath returns the default log file path.
func LogPath() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, AppName+".log")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	if c.UI.PageSize <= 0 {
		c.UI.PageSize = DefaultPageSize
	}
	if c.UI.SplitRatio < 0.2 || c.UI.SplitRatio > 0.8 {
		c.UI.SplitRatio = DefaultSplitRatio
	}
	c.UI.Theme = strings.ToLower(strings.TrimSpace(c.UI.Theme))
	c.Executor.Command = expandHome(strings.TrimSpace(c.Executor.Command))
	if c.Executor.Command == "" {
		c.Executor.Command = DefaultCommand
	}
	if c.Executor.Timeout <= 0 {
		c.Executor.Timeout = DefaultCommandTimeout
	}
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
