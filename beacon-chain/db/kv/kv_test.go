package kv

import (
	"context"
	"testing"

	"github.com/forkchoice/beacon/testing/require"
)

// setupDB instantiates and returns a Store instance.
func setupDB(t testing.TB) *Store {
	db, err := NewKVStore(context.Background(), t.TempDir(), &Config{})
	require.NoError(t, err, "Failed to instantiate DB")
	t.Cleanup(func() {
		require.NoError(t, db.Close(), "Failed to close database")
	})
	return db
}

func TestStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := NewKVStore(ctx, dir, nil)
	require.NoError(t, err)
	blk := testBlock(1, [32]byte{'a'}, [32]byte{'g'})
	require.NoError(t, db.SaveBlock(ctx, blk))
	require.NoError(t, db.Close())

	db, err = NewKVStore(ctx, dir, nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()
	require.Equal(t, true, db.HasBlock(ctx, [32]byte{'a'}))
	require.Equal(t, dir, db.DatabasePath())
}

func TestStore_ClearDB(t *testing.T) {
	ctx := context.Background()
	db, err := NewKVStore(ctx, t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, db.SaveBlock(ctx, testBlock(1, [32]byte{'a'}, [32]byte{'g'})))
	require.NoError(t, db.Close())
	require.NoError(t, db.ClearDB())

	db, err = NewKVStore(ctx, db.DatabasePath(), nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()
	blocks, err := db.Blocks(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, len(blocks))
}
