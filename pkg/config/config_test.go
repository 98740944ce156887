package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Write minimal config
	configContent := `
logging:
  level: "info"

client:
  server: "nas.local:2049"

store:
  type: "memory"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Client.Server != "nas.local:2049" {
		t.Errorf("Expected server 'nas.local:2049', got %q", cfg.Client.Server)
	}
	if cfg.Client.CallTimeout != 30*time.Second {
		t.Errorf("Expected default call_timeout 30s, got %v", cfg.Client.CallTimeout)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected store type 'memory', got %q", cfg.Store.Type)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// A path that does not exist means "defaults only"
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Store.Type != "badger" {
		t.Errorf("Expected default store type 'badger', got %q", cfg.Store.Type)
	}
	if cfg.Client.Server != "localhost:2049" {
		t.Errorf("Expected default server 'localhost:2049', got %q", cfg.Client.Server)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
client:
  server: "no-port-here"
store:
  type: "memory"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for server without port")
	}
}

func TestLoad_Durations(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
client:
  server: "127.0.0.1:635"
  dial_timeout: "2s"
  call_timeout: "1m30s"
  rate_limit:
    calls_per_second: 2.5
    burst: 4
  auth:
    flavor: unix
    uid: 1000
    gid: 100
    gids: [4, 24]
store:
  type: memory
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Client.DialTimeout != 2*time.Second {
		t.Errorf("Expected dial_timeout 2s, got %v", cfg.Client.DialTimeout)
	}
	if cfg.Client.CallTimeout != 90*time.Second {
		t.Errorf("Expected call_timeout 1m30s, got %v", cfg.Client.CallTimeout)
	}
	if cfg.Client.RateLimit.CallsPerSecond != 2.5 || cfg.Client.RateLimit.Burst != 4 {
		t.Errorf("Unexpected rate limit %+v", cfg.Client.RateLimit)
	}
	if cfg.Client.Auth.Flavor != "unix" || cfg.Client.Auth.UID != 1000 || len(cfg.Client.Auth.GIDs) != 2 {
		t.Errorf("Unexpected auth %+v", cfg.Client.Auth)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Client.DialTimeout != 5*time.Second {
		t.Errorf("Expected default dial timeout 5s, got %v", cfg.Client.DialTimeout)
	}
	if cfg.Client.MaxRecordSize != 1<<20 {
		t.Errorf("Expected default max record size 1MB, got %d", cfg.Client.MaxRecordSize)
	}
	if cfg.Client.Auth.Flavor != "none" {
		t.Errorf("Expected default auth flavor 'none', got %q", cfg.Client.Auth.Flavor)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
	if path, _ := cfg.Store.Badger["db_path"].(string); path == "" {
		t.Error("Expected a default badger db_path")
	}
}

func TestConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if ConfigExists() {
		t.Fatal("Expected no config in a fresh directory")
	}
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if !ConfigExists() {
		t.Error("Expected config to exist after InitConfig")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Run("XDG", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", tmpDir)

		if dir := GetConfigDir(); dir != filepath.Join(tmpDir, "dittomount") {
			t.Errorf("Expected %q, got %q", filepath.Join(tmpDir, "dittomount"), dir)
		}
	})

	t.Run("Home", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", tmpDir)

		if dir := GetConfigDir(); dir != filepath.Join(tmpDir, ".config", "dittomount") {
			t.Errorf("Unexpected config dir %q", dir)
		}
	})
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DITTOMOUNT_LOGGING_LEVEL", "ERROR")
	t.Setenv("DITTOMOUNT_CLIENT_SERVER", "filer:635")
	t.Setenv("DITTOMOUNT_METRICS_ENABLED", "true")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

client:
  server: "localhost:2049"

store:
  type: "memory"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Environment variables override the config file
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Client.Server != "filer:635" {
		t.Errorf("Expected server 'filer:635' from env var, got %q", cfg.Client.Server)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics enabled from env var")
	}
}
