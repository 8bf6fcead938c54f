package kv

import (
	"context"
	"testing"

	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/config/params"
	"github.com/forkchoice/beacon/testing/assert"
	"github.com/forkchoice/beacon/testing/require"
)

func TestStore_JustifiedCheckpoint_CanSaveRetrieve(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	root := [32]byte{'A'}
	cp := &forkchoicetypes.Checkpoint{
		Epoch: 10,
		Root:  root,
	}
	require.NoError(t, db.SaveBlock(ctx, testBlock(320, root, [32]byte{'B'})))
	require.NoError(t, db.SaveJustifiedCheckpoint(ctx, cp))

	retrieved, err := db.JustifiedCheckpoint(ctx)
	require.NoError(t, err)
	assert.DeepEqual(t, cp, retrieved, "Wanted %v, received %v", cp, retrieved)
}

func TestStore_FinalizedCheckpoint_CanSaveRetrieve(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	root := [32]byte{'A'}
	cp := &forkchoicetypes.Checkpoint{
		Epoch: 5,
		Root:  root,
	}
	require.NoError(t, db.SaveBlock(ctx, testBlock(160, root, [32]byte{'B'})))
	require.NoError(t, db.SaveFinalizedCheckpoint(ctx, cp))

	retrieved, err := db.FinalizedCheckpoint(ctx)
	require.NoError(t, err)
	assert.DeepEqual(t, cp, retrieved, "Wanted %v, received %v", cp, retrieved)
}

func TestStore_JustifiedCheckpoint_DefaultCantBeNil(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	cp := &forkchoicetypes.Checkpoint{Root: params.BeaconConfig().ZeroHash}
	retrieved, err := db.JustifiedCheckpoint(ctx)
	require.NoError(t, err)
	assert.DeepEqual(t, cp, retrieved, "Wanted %v, received %v", cp, retrieved)
}

func TestStore_FinalizedCheckpoint_DefaultCantBeNil(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	cp := &forkchoicetypes.Checkpoint{Root: params.BeaconConfig().ZeroHash}
	retrieved, err := db.FinalizedCheckpoint(ctx)
	require.NoError(t, err)
	assert.DeepEqual(t, cp, retrieved, "Wanted %v, received %v", cp, retrieved)
}

func TestStore_FinalizedCheckpoint_MissingBlock(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	cp := &forkchoicetypes.Checkpoint{Epoch: 1, Root: [32]byte{'A'}}
	require.ErrorIs(t, db.SaveFinalizedCheckpoint(ctx, cp), errMissingBlockForCheckpoint)
	require.ErrorContains(t, "cannot encode nil message", db.SaveJustifiedCheckpoint(ctx, nil))
}

func TestStore_HeadRoot(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	root, err := db.HeadRoot(ctx)
	require.NoError(t, err)
	assert.Equal(t, params.BeaconConfig().ZeroHash, root)

	require.ErrorContains(t, "no block saved for head root", db.SaveHeadRoot(ctx, [32]byte{'A'}))
	require.NoError(t, db.SaveBlock(ctx, testBlock(1, [32]byte{'A'}, [32]byte{'B'})))
	require.NoError(t, db.SaveHeadRoot(ctx, [32]byte{'A'}))
	root, err = db.HeadRoot(ctx)
	require.NoError(t, err)
	assert.Equal(t, [32]byte{'A'}, root)
}
