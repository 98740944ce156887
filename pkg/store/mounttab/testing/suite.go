// Package testing holds the behaviour every mounttab.Store implementation
// must share. Implementations run it from their own tests.
package testing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittomount/pkg/store/mounttab"
)

// StoreTestSuite runs the shared tests against stores built by NewStore.
// NewStore must return an empty store; closing it is the factory's job
// (typically through t.Cleanup).
type StoreTestSuite struct {
	NewStore func(t *testing.T) mounttab.Store
}

// Run executes every test in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("PutGet", suite.testPutGet)
	t.Run("GetNotFound", suite.testGetNotFound)
	t.Run("PutReplaces", suite.testPutReplaces)
	t.Run("PutInvalid", suite.testPutInvalid)
	t.Run("Delete", suite.testDelete)
	t.Run("DeleteServer", suite.testDeleteServer)
	t.Run("List", suite.testList)
	t.Run("ServerPrefixCollision", suite.testServerPrefixCollision)
	t.Run("CancelledContext", suite.testCancelledContext)
	t.Run("Closed", suite.testClosed)
	t.Run("Concurrent", suite.testConcurrent)
}

// NewEntry builds a valid entry for tests.
func NewEntry(server, path string, handle uint64) mounttab.Entry {
	return mounttab.Entry{
		Server:      server,
		ExportPath:  path,
		Handle:      handle,
		AuthFlavors: []uint32{0, 1},
		SessionID:   "session-" + path,
		MountedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// ============================================================================
// Put / Get
// ============================================================================

func (suite *StoreTestSuite) testPutGet(t *testing.T) {
	store := suite.NewStore(t)
	ctx := context.Background()

	entry := NewEntry("srv:2049", "/export", 0x1122334455667788)
	require.NoError(t, store.Put(ctx, entry))

	got, err := store.Get(ctx, "srv:2049", "/export")
	require.NoError(t, err)
	assert.Equal(t, entry.Server, got.Server)
	assert.Equal(t, entry.ExportPath, got.ExportPath)
	assert.Equal(t, entry.Handle, got.Handle)
	assert.Equal(t, entry.AuthFlavors, got.AuthFlavors)
	assert.Equal(t, entry.SessionID, got.SessionID)
	assert.True(t, entry.MountedAt.Equal(got.MountedAt))
}

func (suite *StoreTestSuite) testGetNotFound(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.Get(context.Background(), "srv:2049", "/missing")
	assert.ErrorIs(t, err, mounttab.ErrNotFound)
}

func (suite *StoreTestSuite) testPutReplaces(t *testing.T) {
	store := suite.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, NewEntry("srv:2049", "/export", 1)))
	require.NoError(t, store.Put(ctx, NewEntry("srv:2049", "/export", 2)))

	got, err := store.Get(ctx, "srv:2049", "/export")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Handle)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func (suite *StoreTestSuite) testPutInvalid(t *testing.T) {
	store := suite.NewStore(t)
	ctx := context.Background()

	assert.Error(t, store.Put(ctx, NewEntry("", "/export", 1)))
	assert.Error(t, store.Put(ctx, NewEntry("srv:2049", "", 1)))
}

// ============================================================================
// Delete
// ============================================================================

func (suite *StoreTestSuite) testDelete(t *testing.T) {
	t.Run("RemovesEntry", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()

		require.NoError(t, store.Put(ctx, NewEntry("srv:2049", "/a", 1)))
		require.NoError(t, store.Put(ctx, NewEntry("srv:2049", "/b", 2)))
		require.NoError(t, store.Delete(ctx, "srv:2049", "/a"))

		_, err := store.Get(ctx, "srv:2049", "/a")
		assert.ErrorIs(t, err, mounttab.ErrNotFound)
		_, err = store.Get(ctx, "srv:2049", "/b")
		assert.NoError(t, err)
	})

	t.Run("MissingIsNotAnError", func(t *testing.T) {
		store := suite.NewStore(t)
		assert.NoError(t, store.Delete(context.Background(), "srv:2049", "/never"))
	})
}

func (suite *StoreTestSuite) testDeleteServer(t *testing.T) {
	store := suite.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, NewEntry("one:2049", "/a", 1)))
	require.NoError(t, store.Put(ctx, NewEntry("one:2049", "/b", 2)))
	require.NoError(t, store.Put(ctx, NewEntry("two:2049", "/a", 3)))

	removed, err := store.DeleteServer(ctx, "one:2049")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	rest, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "two:2049", rest[0].Server)

	removed, err = store.DeleteServer(ctx, "one:2049")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

// ============================================================================
// List
// ============================================================================

func (suite *StoreTestSuite) testList(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		store := suite.NewStore(t)
		entries, err := store.List(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("OrderedByServerThenPath", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()

		require.NoError(t, store.Put(ctx, NewEntry("b:2049", "/z", 1)))
		require.NoError(t, store.Put(ctx, NewEntry("a:2049", "/y", 2)))
		require.NoError(t, store.Put(ctx, NewEntry("b:2049", "/a", 3)))

		entries, err := store.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "a:2049", entries[0].Server)
		assert.Equal(t, "/a", entries[1].ExportPath)
		assert.Equal(t, "/z", entries[2].ExportPath)
	})

	t.Run("FilteredByServer", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()

		require.NoError(t, store.Put(ctx, NewEntry("a:2049", "/x", 1)))
		require.NoError(t, store.Put(ctx, NewEntry("b:2049", "/x", 2)))

		entries, err := store.List(ctx, "b:2049")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, uint64(2), entries[0].Handle)
	})
}

func (suite *StoreTestSuite) testServerPrefixCollision(t *testing.T) {
	store := suite.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, NewEntry("host:1", "/x", 1)))
	require.NoError(t, store.Put(ctx, NewEntry("host:12", "/x", 2)))

	entries, err := store.List(ctx, "host")
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = store.List(ctx, "host:1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(1), entries[0].Handle)

	removed, err := store.DeleteServer(ctx, "host:1")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Get(ctx, "host:12", "/x")
	assert.NoError(t, err)
}

// ============================================================================
// Lifecycle
// ============================================================================

func (suite *StoreTestSuite) testCancelledContext(t *testing.T) {
	store := suite.NewStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, NewEntry("srv:2049", "/a", 1)), context.Canceled)
	_, err := store.List(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func (suite *StoreTestSuite) testClosed(t *testing.T) {
	store := suite.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.Close())
	assert.NoError(t, store.Close())

	assert.ErrorIs(t, store.Put(ctx, NewEntry("srv:2049", "/a", 1)), mounttab.ErrClosed)
	_, err := store.Get(ctx, "srv:2049", "/a")
	assert.ErrorIs(t, err, mounttab.ErrClosed)
	_, err = store.List(ctx, "")
	assert.ErrorIs(t, err, mounttab.ErrClosed)
}

func (suite *StoreTestSuite) testConcurrent(t *testing.T) {
	store := suite.NewStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 10 {
				path := "/" + string(rune('a'+i)) + string(rune('a'+j))
				assert.NoError(t, store.Put(ctx, NewEntry("srv:2049", path, uint64(i*10+j))))
				_, err := store.List(ctx, "srv:2049")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	entries, err := store.List(ctx, "srv:2049")
	require.NoError(t, err)
	assert.Len(t, entries, 80)
}
