package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/dittomount/pkg/store/mounttab"
)

func TestCreateStore_Memory(t *testing.T) {
	store, err := CreateStore(context.Background(), &StoreConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := store.Get(context.Background(), "srv:2049", "/x"); err != mounttab.ErrNotFound {
		t.Errorf("Expected ErrNotFound from empty store, got %v", err)
	}
}

func TestCreateStore_Badger(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mounttab")

	store, err := CreateStore(context.Background(), &StoreConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path":             dbPath,
			"block_cache_size_mb": 4,
		},
	})
	if err != nil {
		t.Fatalf("Failed to create badger store: %v", err)
	}
	defer func() { _ = store.Close() }()

	entry := mounttab.Entry{Server: "srv:2049", ExportPath: "/export", Handle: 7}
	if err := store.Put(context.Background(), entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
}

func TestCreateStore_BadgerMissingPath(t *testing.T) {
	_, err := CreateStore(context.Background(), &StoreConfig{Type: "badger", Badger: map[string]any{}})
	if err == nil {
		t.Fatal("Expected error when db_path is missing")
	}
}

func TestCreateStore_BadgerInvalidOptions(t *testing.T) {
	_, err := CreateStore(context.Background(), &StoreConfig{
		Type:   "badger",
		Badger: map[string]any{"db_path": []string{"not", "a", "string"}},
	})
	if err == nil {
		t.Fatal("Expected decode error for malformed options")
	}
}

func TestCreateStore_UnknownType(t *testing.T) {
	_, err := CreateStore(context.Background(), &StoreConfig{Type: "etcd"})
	if err == nil {
		t.Fatal("Expected error for unknown store type")
	}
}

func TestCreateStore_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CreateStore(ctx, &StoreConfig{Type: "memory"})
	if err == nil {
		t.Fatal("Expected error with cancelled context")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	result := InitializeMetrics(GetDefaultConfig(), nil)
	if result.Server != nil {
		t.Error("Expected no metrics server when disabled")
	}
	if result.ClientMetrics == nil {
		t.Error("Expected no-op client metrics, got nil")
	}
}

func TestInitializeMetrics_Enabled(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 9191

	result := InitializeMetrics(cfg, nil)
	if result.Server == nil {
		t.Fatal("Expected metrics server when enabled")
	}
	if result.Server.Port() != 9191 {
		t.Errorf("Expected port 9191, got %d", result.Server.Port())
	}
	if result.ClientMetrics == nil {
		t.Error("Expected client metrics, got nil")
	}
}
