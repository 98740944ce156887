// Package memory is an in-process mounttab.Store. Entries are lost when the
// process exits.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/marmos91/dittomount/pkg/store/mounttab"
)

type key struct {
	server string
	path   string
}

// Store implements mounttab.Store with a map guarded by a single RWMutex.
type Store struct {
	mu      sync.RWMutex
	entries map[key]mounttab.Entry
	closed  bool
}

var _ mounttab.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[key]mounttab.Entry)}
}

func (s *Store) Put(ctx context.Context, e mounttab.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}

	e.AuthFlavors = slices.Clone(e.AuthFlavors)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return mounttab.ErrClosed
	}
	s.entries[key{e.Server, e.ExportPath}] = e
	return nil
}

func (s *Store) Get(ctx context.Context, server, path string) (mounttab.Entry, error) {
	if err := ctx.Err(); err != nil {
		return mounttab.Entry{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return mounttab.Entry{}, mounttab.ErrClosed
	}
	e, ok := s.entries[key{server, path}]
	if !ok {
		return mounttab.Entry{}, mounttab.ErrNotFound
	}
	e.AuthFlavors = slices.Clone(e.AuthFlavors)
	return e, nil
}

func (s *Store) Delete(ctx context.Context, server, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return mounttab.ErrClosed
	}
	delete(s.entries, key{server, path})
	return nil
}

func (s *Store) DeleteServer(ctx context.Context, server string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, mounttab.ErrClosed
	}
	removed := 0
	for k := range s.entries {
		if k.server == server {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) List(ctx context.Context, server string) ([]mounttab.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, mounttab.ErrClosed
	}
	out := make([]mounttab.Entry, 0, len(s.entries))
	for k, e := range s.entries {
		if server != "" && k.server != server {
			continue
		}
		e.AuthFlavors = slices.Clone(e.AuthFlavors)
		out = append(out, e)
	}
	mounttab.Sort(out)
	return out, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}
