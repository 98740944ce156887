// Package mounttab records the exports this client has mounted, so that a
// later process can list them or unmount them again.
//
// The table is client-side bookkeeping only: the server keeps its own mount
// list (see the MOUNT DUMP procedure) and never consults this one.
package mounttab

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrNotFound is returned by Get when no entry exists for a server and path.
var ErrNotFound = errors.New("mount entry not found")

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("mount table closed")

// Entry is one successful MNT call.
type Entry struct {
	// Server is the mountd address the export was mounted from (host:port).
	Server string `json:"server"`

	// ExportPath is the dirpath passed to MNT.
	ExportPath string `json:"export_path"`

	// Handle is the root file handle returned by the server.
	Handle uint64 `json:"handle"`

	// AuthFlavors lists the flavors the server accepts, in server order.
	AuthFlavors []uint32 `json:"auth_flavors"`

	// SessionID identifies the RPC connection that performed the mount.
	SessionID string `json:"session_id"`

	MountedAt time.Time `json:"mounted_at"`
}

// Validate checks the fields a store needs to key the entry.
func (e Entry) Validate() error {
	if e.Server == "" {
		return fmt.Errorf("mount entry: server is required")
	}
	if e.ExportPath == "" {
		return fmt.Errorf("mount entry: export path is required")
	}
	return nil
}

// Store persists mount entries keyed by (server, export path).
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Put inserts or replaces the entry for (e.Server, e.ExportPath).
	Put(ctx context.Context, e Entry) error

	// Get returns the entry for server and path, or ErrNotFound.
	Get(ctx context.Context, server, path string) (Entry, error)

	// Delete removes the entry for server and path. Deleting a missing
	// entry is not an error: UMNT is idempotent and so is this.
	Delete(ctx context.Context, server, path string) error

	// DeleteServer removes every entry for server and returns how many
	// were removed.
	DeleteServer(ctx context.Context, server string) (int, error)

	// List returns the entries for server, or all entries when server is
	// empty, ordered by server then export path.
	List(ctx context.Context, server string) ([]Entry, error)

	// Close releases the store's resources.
	Close() error
}

// Sort orders entries by server, then export path.
func Sort(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Or(cmp.Compare(a.Server, b.Server), cmp.Compare(a.ExportPath, b.ExportPath))
	})
}
