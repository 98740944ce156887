package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config, got error: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:    "InvalidLogLevel",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "TRACE" },
			wantErr: "Level",
		},
		{
			name:    "InvalidLogFormat",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: "Format",
		},
		{
			name:    "ServerWithoutPort",
			mutate:  func(cfg *Config) { cfg.Client.Server = "nas.local" },
			wantErr: "Server",
		},
		{
			name:    "ZeroDialTimeout",
			mutate:  func(cfg *Config) { cfg.Client.DialTimeout = 0 },
			wantErr: "DialTimeout",
		},
		{
			name:    "NegativeCallTimeout",
			mutate:  func(cfg *Config) { cfg.Client.CallTimeout = -1 },
			wantErr: "CallTimeout",
		},
		{
			name:    "UnknownAuthFlavor",
			mutate:  func(cfg *Config) { cfg.Client.Auth.Flavor = "krb5" },
			wantErr: "Flavor",
		},
		{
			name: "TooManyGroups",
			mutate: func(cfg *Config) {
				cfg.Client.Auth.Flavor = "unix"
				cfg.Client.Auth.GIDs = make([]uint32, 17)
			},
			wantErr: "GIDs",
		},
		{
			name:    "IdentityWithoutUnixFlavor",
			mutate:  func(cfg *Config) { cfg.Client.Auth.UID = 1000 },
			wantErr: "client.auth",
		},
		{
			name:    "InvalidStoreType",
			mutate:  func(cfg *Config) { cfg.Store.Type = "postgres" },
			wantErr: "Type",
		},
		{
			name:    "BadgerWithoutPath",
			mutate:  func(cfg *Config) { cfg.Store.Badger["db_path"] = "" },
			wantErr: "db_path",
		},
		{
			name:    "BurstWithoutRate",
			mutate:  func(cfg *Config) { cfg.Client.RateLimit.Burst = 5 },
			wantErr: "rate_limit",
		},
		{
			name:    "TinyRecordSize",
			mutate:  func(cfg *Config) { cfg.Client.MaxRecordSize = 16 },
			wantErr: "max_record_size",
		},
		{
			name:    "InvalidMetricsPort",
			mutate:  func(cfg *Config) { cfg.Metrics.Port = 70000 },
			wantErr: "Port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	for _, level := range []string{"debug", "Info", "WARN", "error"} {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level
		ApplyDefaults(cfg)

		if err := Validate(cfg); err != nil {
			t.Errorf("Level %q should be valid after normalization: %v", level, err)
		}
		if cfg.Logging.Level != strings.ToUpper(level) {
			t.Errorf("Expected %q, got %q", strings.ToUpper(level), cfg.Logging.Level)
		}
	}
}

func TestValidate_MemoryStoreNeedsNoPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "memory"
	cfg.Store.Badger = map[string]any{}

	if err := Validate(cfg); err != nil {
		t.Errorf("Memory store should not need db_path: %v", err)
	}
}
