package kv

import (
	"context"
	"testing"

	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/testing/assert"
	"github.com/forkchoice/beacon/testing/require"
	types "github.com/prysmaticlabs/eth2-types"
)

func TestStore_VotesCRUD(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	votes, err := db.Votes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, len(votes))

	saved := map[types.ValidatorIndex]*forkchoicetypes.LatestMessage{
		0:   {Root: [32]byte{'a'}, Epoch: 1, Balance: 32},
		256: {Root: [32]byte{'b'}, Epoch: 2, Balance: 31},
		7:   nil,
	}
	require.NoError(t, db.SaveVotes(ctx, saved))

	// A later flush overrides validator 0 and keeps validator 256.
	require.NoError(t, db.SaveVotes(ctx, map[types.ValidatorIndex]*forkchoicetypes.LatestMessage{
		0: {Root: [32]byte{'c'}, Epoch: 3, Balance: 32},
	}))

	votes, err = db.Votes(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, len(votes))
	assert.DeepEqual(t, &forkchoicetypes.LatestMessage{Root: [32]byte{'c'}, Epoch: 3, Balance: 32}, votes[0])
	assert.DeepEqual(t, saved[256], votes[256])
}
