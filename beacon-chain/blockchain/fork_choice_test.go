package blockchain

import (
	"context"
	"testing"

	testDB "github.com/forkchoice/beacon/beacon-chain/db/testing"
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/config/params"
	"github.com/forkchoice/beacon/testing/assert"
	"github.com/forkchoice/beacon/testing/require"
	types "github.com/prysmaticlabs/eth2-types"
)

func TestService_ShouldUpdateJustified(t *testing.T) {
	ctx := context.Background()
	s := setupService(t, testDB.SetupDB(t))
	receiveBlocks(t, s,
		testBlock(0, genesisRoot, params.BeaconConfig().ZeroHash),
		testBlock(1, rootA, genesisRoot),
	)
	require.Equal(t, genesisRoot, s.ForkChoicer().JustifiedCheckpoint().Root)
	lateSlot := params.BeaconConfig().SlotsPerEpoch + params.BeaconConfig().SafeSlotsToUpdateJustified

	tests := []struct {
		name      string
		blockSlot types.Slot
		root      [32]byte
		want      bool
	}{
		{name: "early in the epoch", blockSlot: 1, root: [32]byte{'z'}, want: true},
		{name: "late, extends justified block", blockSlot: lateSlot, root: rootA, want: true},
		{name: "late, unknown block", blockSlot: lateSlot, root: [32]byte{'z'}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.lock.RLock()
			got, err := s.shouldUpdateJustified(ctx, tt.blockSlot, &forkchoicetypes.Checkpoint{Epoch: 1, Root: tt.root})
			s.lock.RUnlock()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
