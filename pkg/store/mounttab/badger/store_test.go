package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittomount/pkg/store/mounttab"
	storetest "github.com/marmos91/dittomount/pkg/store/mounttab/testing"
)

func TestStore(t *testing.T) {
	suite := &storetest.StoreTestSuite{
		NewStore: func(t *testing.T) mounttab.Store {
			store, err := New(context.Background(), Config{DBPath: t.TempDir()})
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
	suite.Run(t)
}

func TestStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := New(ctx, Config{DBPath: dir})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, storetest.NewEntry("srv:2049", "/export", 0xabcdef)))
	require.NoError(t, store.Close())

	reopened, err := New(ctx, Config{DBPath: dir})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(ctx, "srv:2049", "/export")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xabcdef), got.Handle)
	assert.Equal(t, []uint32{0, 1}, got.AuthFlavors)
}

func TestNew_Errors(t *testing.T) {
	t.Run("MissingPath", func(t *testing.T) {
		_, err := New(context.Background(), Config{})
		assert.Error(t, err)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(ctx, Config{DBPath: t.TempDir()})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "mnt:srv:2049:/export", string(keyMount("srv:2049", "/export")))
	assert.Equal(t, "mnt:srv:2049:", string(keyServerPrefix("srv:2049")))
	assert.Equal(t, "mnt:", string(keyServerPrefix("")))
}
