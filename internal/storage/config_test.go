package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Run("creates defaults when missing", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := LoadConfig(dir)
		if err != nil {
			t.Fatalf("LoadConfig error: %v", err)
		}
		if *cfg != DefaultConfig() {
			t.Errorf("LoadConfig = %+v, want defaults %+v", cfg, DefaultConfig())
		}
		if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
			t.Errorf("config.json not created: %v", err)
		}
	})

	t.Run("reads existing config", func(t *testing.T) {
		dir := t.TempDir()
		want := Config{Dashboard: DashboardConfig{RecentLimit: 10, ExpiryHorizonDays: 60, ExpiringLimit: 3}}
		if err := SaveConfig(dir, &want); err != nil {
			t.Fatalf("SaveConfig error: %v", err)
		}
		got, err := LoadConfig(dir)
		if err != nil {
			t.Fatalf("LoadConfig error: %v", err)
		}
		if *got != want {
			t.Errorf("LoadConfig = %+v, want %+v", got, want)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.json")
		if err := os.WriteFile(path, []byte(`{"dashboard":{"recent_limit":0,"expiry_horizon_days":30,"expiring_limit":5}}`), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(dir); err == nil {
			t.Error("LoadConfig expected error for zero recent_limit, got nil")
		}
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(dir); err == nil {
			t.Error("LoadConfig expected error for malformed JSON, got nil")
		}
	})
}
