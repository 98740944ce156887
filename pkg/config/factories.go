package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/dittomount/pkg/store/mounttab"
	"github.com/marmos91/dittomount/pkg/store/mounttab/badger"
	"github.com/marmos91/dittomount/pkg/store/mounttab/memory"
)

// CreateStore creates a mount table based on configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/store/mounttab/memory (lost on exit)
//   - "badger": Uses pkg/store/mounttab/badger (persistent)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Store configuration
//
// Returns:
//   - mounttab.Store: Initialized store; the caller must Close it
//   - error: Configuration or initialization error
func CreateStore(ctx context.Context, cfg *StoreConfig) (mounttab.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "memory":
		return memory.New(), nil
	case "badger":
		return createBadgerStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

// createBadgerStore creates a BadgerDB-backed mount table.
func createBadgerStore(ctx context.Context, options map[string]any) (mounttab.Store, error) {
	var storeCfg badger.Config
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger store config: %w", err)
	}

	if storeCfg.DBPath == "" {
		return nil, fmt.Errorf("badger store: db_path is required")
	}

	store, err := badger.New(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger store: %w", err)
	}

	return store, nil
}
