// Package badger is a persistent mounttab.Store backed by BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/marmos91/dittomount/pkg/store/mounttab"
)

// Config is decoded from the store options in the configuration file.
type Config struct {
	// DBPath is the directory where BadgerDB keeps its files. It is created
	// if it does not exist.
	DBPath string `mapstructure:"db_path"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 16)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 8)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// Store implements mounttab.Store on top of a BadgerDB instance.
type Store struct {
	db     *badger.DB
	closed atomic.Bool
}

var _ mounttab.Store = (*Store)(nil)

// New opens (or creates) the mount table at config.DBPath.
func New(ctx context.Context, config Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.DBPath == "" {
		return nil, fmt.Errorf("badger mount table: db_path is required")
	}

	opts := badger.DefaultOptions(config.DBPath)
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 16
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 8
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return mounttab.ErrClosed
	}
	return nil
}

func (s *Store) Put(ctx context.Context, e mounttab.Entry) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode mount entry: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyMount(e.Server, e.ExportPath), data)
	})
}

func (s *Store) Get(ctx context.Context, server, path string) (mounttab.Entry, error) {
	if err := s.check(ctx); err != nil {
		return mounttab.Entry{}, err
	}

	var entry mounttab.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyMount(server, path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return mounttab.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decodeEntry(val, &entry)
		})
	})
	if err != nil {
		return mounttab.Entry{}, err
	}
	return entry, nil
}

func (s *Store) Delete(ctx context.Context, server, path string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(keyMount(server, path))
	})
}

func (s *Store) DeleteServer(ctx context.Context, server string) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	if server == "" {
		return 0, fmt.Errorf("badger mount table: server is required")
	}

	removed := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		var keys [][]byte
		err := s.scan(txn, server, func(item *badger.Item, _ mounttab.Entry) {
			keys = append(keys, item.KeyCopy(nil))
		})
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		removed = len(keys)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) List(ctx context.Context, server string) ([]mounttab.Entry, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	entries := []mounttab.Entry{}
	err := s.db.View(func(txn *badger.Txn) error {
		return s.scan(txn, server, func(_ *badger.Item, e mounttab.Entry) {
			entries = append(entries, e)
		})
	})
	if err != nil {
		return nil, err
	}
	mounttab.Sort(entries)
	return entries, nil
}

// scan visits every entry for server (all entries when server is empty).
func (s *Store) scan(txn *badger.Txn, server string, fn func(*badger.Item, mounttab.Entry)) error {
	prefix := keyServerPrefix(server)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var entry mounttab.Entry
		if err := item.Value(func(val []byte) error {
			return decodeEntry(val, &entry)
		}); err != nil {
			return err
		}
		if server != "" && entry.Server != server {
			continue
		}
		fn(item, entry)
	}
	return nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

func decodeEntry(data []byte, entry *mounttab.Entry) error {
	if err := json.Unmarshal(data, entry); err != nil {
		return fmt.Errorf("failed to decode mount entry: %w", err)
	}
	return nil
}
