package kv

import (
	"context"
	"testing"

	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/testing/assert"
	"github.com/forkchoice/beacon/testing/require"
	types "github.com/prysmaticlabs/eth2-types"
	bolt "go.etcd.io/bbolt"
)

func testBlock(slot types.Slot, root, parent [32]byte) *forkchoicetypes.BlockAndCheckpoints {
	return &forkchoicetypes.BlockAndCheckpoints{
		Block: &forkchoicetypes.Block{
			Slot:          slot,
			Root:          root,
			ParentRoot:    parent,
			PayloadStatus: forkchoicetypes.Optimistic,
		},
		JustifiedCheckpoint:           &forkchoicetypes.Checkpoint{Epoch: 1, Root: parent},
		FinalizedCheckpoint:           &forkchoicetypes.Checkpoint{Epoch: 0, Root: parent},
		UnrealizedJustifiedCheckpoint: &forkchoicetypes.Checkpoint{Epoch: 2, Root: root},
		UnrealizedFinalizedCheckpoint: &forkchoicetypes.Checkpoint{Epoch: 1, Root: parent},
	}
}

func TestStore_SaveBlock_NoDuplicates(t *testing.T) {
	BlockCacheSize = 1
	db := setupDB(t)
	ctx := context.Background()
	blk := testBlock(1, [32]byte{'a'}, [32]byte{'g'})

	// Even with a full cache, saving new blocks should not cause
	// duplicated blocks in the DB.
	for i := 0; i < 100; i++ {
		require.NoError(t, db.SaveBlock(ctx, blk))
	}
	blocks, err := db.Blocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, len(blocks), "Should have only saved 1 item")
	BlockCacheSize = 256
}

func TestStore_BlocksCRUD(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	blk := testBlock(20, [32]byte{'a'}, [32]byte{'g'})

	retrieved, err := db.Block(ctx, [32]byte{'a'})
	require.NoError(t, err)
	assert.IsNil(t, retrieved, "Expected nil block")
	assert.Equal(t, false, db.HasBlock(ctx, [32]byte{'a'}))

	require.NoError(t, db.SaveBlock(ctx, blk))
	assert.Equal(t, true, db.HasBlock(ctx, [32]byte{'a'}), "Expected block to exist in the db")
	retrieved, err = db.Block(ctx, [32]byte{'a'})
	require.NoError(t, err)
	assert.DeepEqual(t, blk, retrieved, "Wanted: %v, received: %v", blk, retrieved)

	// Bypass the cache.
	db.blockCache.Purge()
	retrieved, err = db.Block(ctx, [32]byte{'a'})
	require.NoError(t, err)
	assert.DeepEqual(t, blk, retrieved)

	require.NoError(t, db.DeleteBlocks(ctx, [][32]byte{{'a'}, {'z'}}))
	assert.Equal(t, false, db.HasBlock(ctx, [32]byte{'a'}), "Expected block to have been deleted from the db")
	retrieved, err = db.Block(ctx, [32]byte{'a'})
	require.NoError(t, err)
	assert.IsNil(t, retrieved)
}

func TestStore_Blocks_SlotOrdered(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	blks := []*forkchoicetypes.BlockAndCheckpoints{
		testBlock(300, [32]byte{'d'}, [32]byte{'c'}),
		testBlock(2, [32]byte{'b'}, [32]byte{'a'}),
		testBlock(256, [32]byte{'c'}, [32]byte{'b'}),
		testBlock(2, [32]byte{'e'}, [32]byte{'a'}),
		testBlock(0, [32]byte{'a'}, [32]byte{}),
	}
	require.NoError(t, db.SaveBlocks(ctx, blks))

	retrieved, err := db.Blocks(ctx)
	require.NoError(t, err)
	require.Equal(t, len(blks), len(retrieved))
	want := [][32]byte{{'a'}, {'b'}, {'e'}, {'c'}, {'d'}}
	for i, blk := range retrieved {
		assert.Equal(t, want[i], blk.Block.Root, "Wrong block at position %d", i)
	}
}

func TestStore_SaveBlocks_NilBlock(t *testing.T) {
	db := setupDB(t)
	err := db.SaveBlocks(context.Background(), []*forkchoicetypes.BlockAndCheckpoints{nil})
	require.ErrorContains(t, "cannot save nil block", err)
}

func TestStore_SaveBlocks_FailedUpdateNotCached(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	ok := testBlock(1, [32]byte{'a'}, [32]byte{'g'})
	conflicting := testBlock(2, [32]byte{'b'}, [32]byte{'a'})
	// A nested bucket under the block key makes the put fail.
	require.NoError(t, db.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.Bucket(blocksBucket).CreateBucket(blockKey(conflicting.Block.Slot, conflicting.Block.Root))
		return err
	}))

	err := db.SaveBlocks(ctx, []*forkchoicetypes.BlockAndCheckpoints{ok, conflicting})
	require.NotNil(t, err)
	assert.Equal(t, false, db.blockCache.Contains(ok.Block.Root), "Rolled back block was cached")
	assert.Equal(t, false, db.HasBlock(ctx, ok.Block.Root))
	blk, err := db.Block(ctx, ok.Block.Root)
	require.NoError(t, err)
	assert.Equal(t, true, blk == nil)
}
