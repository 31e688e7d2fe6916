// Package config handles loading and saving catview configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/catview/config.yaml
//
// Command-line flags override anything set here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/catview/pkg/model"
)

const appName = "catview"

// UIConfig holds UI preference settings.
type UIConfig struct {
	SplitRatio  float64 `yaml:"split_ratio,omitempty"`  // Tree pane share of the width (0.2-0.8)
	ExpandDepth int     `yaml:"expand_depth,omitempty"` // Levels expanded on first render; -1 expands all
}

// TreeConfig controls forest construction.
type TreeConfig struct {
	AdoptOrphans bool `yaml:"adopt_orphans,omitempty"` // Show dangling records as roots instead of dropping them
}

// TableConfig controls row projection.
type TableConfig struct {
	// ColumnFields maps a column ID to a record field or property key.
	// Columns without an entry show the display name.
	ColumnFields map[string]string `yaml:"column_fields,omitempty"`
}

// WatchConfig controls live reload.
type WatchConfig struct {
	Disabled  bool          `yaml:"disabled,omitempty"`
	Debounce  time.Duration `yaml:"debounce,omitempty"`
	ForcePoll bool          `yaml:"force_poll,omitempty"`
}

// DiscoveryConfig controls the catalog picker's scan for .catalog/ dirs.
type DiscoveryConfig struct {
	ScanPaths []string `yaml:"scan_paths,omitempty"`
	MaxDepth  int      `yaml:"max_depth,omitempty"` // How deep to scan (default 3)
}

// Config is the top-level configuration for catview.
type Config struct {
	Catalog   string          `yaml:"catalog,omitempty"` // File or directory to load
	Columns   []model.Column  `yaml:"columns,omitempty"` // Used when the catalog declares none
	UI        UIConfig        `yaml:"ui,omitempty"`
	Tree      TreeConfig      `yaml:"tree,omitempty"`
	Table     TableConfig     `yaml:"table,omitempty"`
	Watch     WatchConfig     `yaml:"watch,omitempty"`
	Discovery DiscoveryConfig `yaml:"discovery,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			SplitRatio:  0.4,
			ExpandDepth: 2,
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		Discovery: DiscoveryConfig{
			MaxDepth: 3,
		},
	}
}

// ConfigDir returns the XDG config directory for catview.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
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

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Catalog = expandHome(cfg.Catalog)
	for i := range cfg.Discovery.ScanPaths {
		cfg.Discovery.ScanPaths[i] = expandHome(cfg.Discovery.ScanPaths[i])
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
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

// Validate checks value ranges that would otherwise surface as odd layouts.
func (c Config) Validate() error {
	if c.UI.SplitRatio != 0 && (c.UI.SplitRatio < 0.2 || c.UI.SplitRatio > 0.8) {
		return fmt.Errorf("ui.split_ratio must be between 0.2 and 0.8, got %v", c.UI.SplitRatio)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	for i := range c.Columns {
		if err := c.Columns[i].Validate(); err != nil {
			return fmt.Errorf("columns[%d]: %w", i, err)
		}
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
