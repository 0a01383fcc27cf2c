// Manages tool configuration stored in config.json.

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config stores tool-wide configuration.
// Loaded from config.json in the data directory, created with defaults if missing.
type Config struct {
	// Dashboard controls the dashboard snapshot composition.
	Dashboard DashboardConfig `json:"dashboard"`
}

// DashboardConfig controls how the dashboard snapshot is built.
type DashboardConfig struct {
	// RecentLimit caps the recent-people and recent-assets lists.
	RecentLimit int `json:"recent_limit"`

	// ExpiryHorizonDays is how far ahead the expiring-licenses list looks.
	ExpiryHorizonDays int `json:"expiry_horizon_days"`

	// ExpiringLimit caps the expiring-licenses list.
	ExpiringLimit int `json:"expiring_limit"`
}

// Validate checks that dashboard values are positive.
func (d *DashboardConfig) Validate() error {
	if d.RecentLimit <= 0 {
		return errors.New("recent_limit must be positive")
	}
	if d.ExpiryHorizonDays <= 0 {
		return errors.New("expiry_horizon_days must be positive")
	}
	if d.ExpiringLimit <= 0 {
		return errors.New("expiring_limit must be positive")
	}
	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Dashboard: DashboardConfig{
			RecentLimit:       5,
			ExpiryHorizonDays: 30,
			ExpiringLimit:     5,
		},
	}
}

// LoadConfig reads config.json from the data directory, creating it with
// defaults when missing.
func LoadConfig(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, "config.json")
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir flag, not user input
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		cfg := DefaultConfig()
		if err := SaveConfig(dataDir, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Dashboard.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveConfig writes the configuration to config.json in the data directory.
func SaveConfig(dataDir string, cfg *Config) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dataDir, "config.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // G306: config is not sensitive
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
