package protoarray

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/config/params"
	"github.com/forkchoice/beacon/testing/assert"
	"github.com/forkchoice/beacon/testing/require"
	types "github.com/prysmaticlabs/eth2-types"
)

func indexToHash(i uint64) [32]byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], i)
	return sha256.Sum256(b[:])
}

// setup returns a fork choice store anchored on a genesis block with root
// indexToHash(0) and the given checkpoint epochs.
func setup(justifiedEpoch, finalizedEpoch types.Epoch) *ForkChoice {
	genesis := indexToHash(0)
	cfg := DefaultConfig(
		&forkchoicetypes.Checkpoint{Epoch: justifiedEpoch, Root: genesis},
		&forkchoicetypes.Checkpoint{Epoch: finalizedEpoch, Root: genesis},
	)
	cfg.InitialEpoch = 0
	f, err := New(cfg)
	if err != nil {
		panic(err)
	}
	if err := f.ProcessBlock(context.Background(), blockWithCheckpoints(0, genesis, params.BeaconConfig().ZeroHash, justifiedEpoch, finalizedEpoch)); err != nil {
		panic(err)
	}
	return f
}

func blockWithCheckpoints(slot types.Slot, root, parentRoot [32]byte, justifiedEpoch, finalizedEpoch types.Epoch) *forkchoicetypes.BlockAndCheckpoints {
	return &forkchoicetypes.BlockAndCheckpoints{
		Block: &forkchoicetypes.Block{
			Slot:          slot,
			Root:          root,
			ParentRoot:    parentRoot,
			PayloadStatus: forkchoicetypes.Optimistic,
		},
		JustifiedCheckpoint: &forkchoicetypes.Checkpoint{Epoch: justifiedEpoch, Root: indexToHash(0)},
		FinalizedCheckpoint: &forkchoicetypes.Checkpoint{Epoch: finalizedEpoch, Root: indexToHash(0)},
	}
}

// newTestStore builds a store from a literal node list, anchored at genesis.
func newTestStore(nodes []*Node) *Store {
	s := &Store{
		justifiedCheckpoint:     &forkchoicetypes.Checkpoint{},
		prevJustifiedCheckpoint: &forkchoicetypes.Checkpoint{},
		bestJustifiedCheckpoint: &forkchoicetypes.Checkpoint{},
		finalizedCheckpoint:     &forkchoicetypes.Checkpoint{},
		nodes:                   nodes,
		nodesIndices:            make(map[[32]byte]uint64),
		canonicalNodes:          make(map[[32]byte]bool),
	}
	for i, n := range nodes {
		s.nodesIndices[n.root] = uint64(i)
	}
	return s
}

func TestComputeDelta_ZeroHash(t *testing.T) {
	validatorCount := uint64(16)
	indices := make(map[[32]byte]uint64)
	votes := make([]Vote, 0)

	for i := uint64(0); i < validatorCount; i++ {
		indices[indexToHash(i)] = i
		votes = append(votes, Vote{currentRoot: params.BeaconConfig().ZeroHash, nextRoot: params.BeaconConfig().ZeroHash, nextEpoch: 0})
	}

	delta, err := computeDeltas(context.Background(), len(indices), indices, votes, map[types.ValidatorIndex]bool{})
	require.NoError(t, err)
	assert.Equal(t, int(validatorCount), len(delta))

	// Deltas should all be 0
	for _, d := range delta {
		assert.Equal(t, int64(0), d)
	}
}

func TestComputeDelta_AllVoteTheSame(t *testing.T) {
	validatorBalance := uint64(42)
	validatorCount := uint64(16)
	indices := make(map[[32]byte]uint64)
	votes := make([]Vote, 0)

	for i := uint64(0); i < validatorCount; i++ {
		indices[indexToHash(i)] = i
		votes = append(votes, Vote{currentRoot: params.BeaconConfig().ZeroHash, nextRoot: indexToHash(0), nextEpoch: 0, nextBalance: validatorBalance})
	}

	delta, err := computeDeltas(context.Background(), len(indices), indices, votes, map[types.ValidatorIndex]bool{})
	require.NoError(t, err)
	assert.Equal(t, int(validatorCount), len(delta))

	for i, d := range delta {
		if i == 0 {
			assert.Equal(t, int64(validatorBalance*validatorCount), d, "Did not get correct balance")
		} else {
			assert.Equal(t, int64(0), d, "Did not get correct balance")
		}
	}
	for _, v := range votes {
		assert.Equal(t, indexToHash(0), v.currentRoot, "Vote was not rotated")
		assert.Equal(t, validatorBalance, v.currentBalance, "Vote balance was not rotated")
	}
}

func TestComputeDelta_DifferentVotes(t *testing.T) {
	validatorBalance := uint64(42)
	validatorCount := uint64(16)
	indices := make(map[[32]byte]uint64)
	votes := make([]Vote, 0)

	for i := uint64(0); i < validatorCount; i++ {
		indices[indexToHash(i)] = i
		votes = append(votes, Vote{currentRoot: params.BeaconConfig().ZeroHash, nextRoot: indexToHash(i), nextEpoch: 0, nextBalance: validatorBalance})
	}

	delta, err := computeDeltas(context.Background(), len(indices), indices, votes, map[types.ValidatorIndex]bool{})
	require.NoError(t, err)
	assert.Equal(t, int(validatorCount), len(delta))

	for _, d := range delta {
		assert.Equal(t, int64(validatorBalance), d, "Did not get correct delta")
	}
}

func TestComputeDelta_MovingVotes(t *testing.T) {
	validatorBalance := uint64(42)
	validatorCount := uint64(16)
	indices := make(map[[32]byte]uint64)
	votes := make([]Vote, 0)

	lastIndex := validatorCount - 1
	for i := uint64(0); i < validatorCount; i++ {
		indices[indexToHash(i)] = i
		votes = append(votes, Vote{
			currentRoot:    indexToHash(0),
			nextRoot:       indexToHash(lastIndex),
			nextEpoch:      0,
			currentBalance: validatorBalance,
			nextBalance:    validatorBalance,
		})
	}

	delta, err := computeDeltas(context.Background(), len(indices), indices, votes, map[types.ValidatorIndex]bool{})
	require.NoError(t, err)
	assert.Equal(t, int(validatorCount), len(delta))

	for i, d := range delta {
		if i == 0 {
			assert.Equal(t, -int64(validatorBalance*validatorCount), d, "First root should have negative delta")
		} else if i == len(delta)-1 {
			assert.Equal(t, int64(validatorBalance*validatorCount), d, "Last root should have positive delta")
		} else {
			assert.Equal(t, int64(0), d, "Did not get correct balance")
		}
	}
}

func TestComputeDelta_MoveOutOfTree(t *testing.T) {
	balance := uint64(42)
	indices := make(map[[32]byte]uint64)
	// There is only one block.
	indices[indexToHash(1)] = 0

	votes := []Vote{
		{currentRoot: indexToHash(1), nextRoot: params.BeaconConfig().ZeroHash, currentBalance: balance, nextBalance: balance},
		{currentRoot: indexToHash(1), nextRoot: [32]byte{'A'}, currentBalance: balance, nextBalance: balance},
	}

	delta, err := computeDeltas(context.Background(), len(indices), indices, votes, map[types.ValidatorIndex]bool{})
	require.NoError(t, err)
	assert.Equal(t, 1, len(delta))
	assert.Equal(t, 0-2*int64(balance), delta[0], "Incorrect delta")

	// The unknown target stays pending while the old vote is withdrawn.
	assert.Equal(t, uint64(0), votes[1].currentBalance, "Withdrawn vote kept its balance")
	assert.Equal(t, [32]byte{'A'}, votes[1].nextRoot, "Pending vote lost its target")
}

func TestComputeDelta_PendingVoteCountsOnceKnown(t *testing.T) {
	balance := uint64(32)
	indices := map[[32]byte]uint64{indexToHash(1): 0}
	votes := []Vote{{nextRoot: indexToHash(2), nextBalance: balance}}

	delta, err := computeDeltas(context.Background(), len(indices), indices, votes, map[types.ValidatorIndex]bool{})
	require.NoError(t, err)
	assert.DeepEqual(t, []int64{0}, delta)

	// The block arrives.
	indices[indexToHash(2)] = 1
	delta, err = computeDeltas(context.Background(), len(indices), indices, votes, map[types.ValidatorIndex]bool{})
	require.NoError(t, err)
	assert.DeepEqual(t, []int64{0, int64(balance)}, delta)

	// Nothing changed, nothing is counted twice.
	delta, err = computeDeltas(context.Background(), len(indices), indices, votes, map[types.ValidatorIndex]bool{})
	require.NoError(t, err)
	assert.DeepEqual(t, []int64{0, 0}, delta)
}

func TestComputeDelta_ChangingBalances(t *testing.T) {
	oldBalance := uint64(42)
	newBalance := oldBalance * 2
	validatorCount := uint64(16)
	indices := make(map[[32]byte]uint64)
	votes := make([]Vote, 0)
	for i := uint64(0); i < validatorCount; i++ {
		indices[indexToHash(i)] = i
		votes = append(votes, Vote{
			currentRoot:    indexToHash(0),
			nextRoot:       indexToHash(1),
			nextEpoch:      0,
			currentBalance: oldBalance,
			nextBalance:    newBalance,
		})
	}

	delta, err := computeDeltas(context.Background(), len(indices), indices, votes, map[types.ValidatorIndex]bool{})
	require.NoError(t, err)
	assert.Equal(t, int(validatorCount), len(delta))
	for i, d := range delta {
		if i == 0 {
			assert.Equal(t, -int64(oldBalance*validatorCount), d, "First root should have negative delta")
		} else if i == 1 {
			assert.Equal(t, int64(newBalance*validatorCount), d, "Second root should have positive delta")
		} else {
			assert.Equal(t, int64(0), d, "Did not get correct delta")
		}
	}
}

func TestComputeDelta_SameRootNewBalance(t *testing.T) {
	indices := map[[32]byte]uint64{indexToHash(1): 0}
	votes := []Vote{{currentRoot: indexToHash(1), nextRoot: indexToHash(1), currentBalance: 32, nextBalance: 31}}

	delta, err := computeDeltas(context.Background(), len(indices), indices, votes, map[types.ValidatorIndex]bool{})
	require.NoError(t, err)
	assert.DeepEqual(t, []int64{-1}, delta)
	assert.Equal(t, uint64(31), votes[0].currentBalance)
}

func TestComputeDelta_ValidatorDisappears(t *testing.T) {
	balance := uint64(42)
	indices := make(map[[32]byte]uint64)
	indices[indexToHash(1)] = 0
	indices[indexToHash(2)] = 1

	votes := []Vote{
		{currentRoot: indexToHash(1), nextRoot: indexToHash(2), nextEpoch: 0, currentBalance: balance, nextBalance: balance},
		{currentRoot: indexToHash(1), nextRoot: indexToHash(2), nextEpoch: 0, currentBalance: balance, nextBalance: 0},
	}

	delta, err := computeDeltas(context.Background(), len(indices), indices, votes, map[types.ValidatorIndex]bool{})
	require.NoError(t, err)
	assert.Equal(t, 2, len(delta))
	assert.Equal(t, 0-2*int64(balance), delta[0], "Incorrect delta")
	assert.Equal(t, int64(balance), delta[1], "Incorrect delta")
}

func TestComputeDelta_SlashedValidator(t *testing.T) {
	balance := uint64(32)
	indices := map[[32]byte]uint64{indexToHash(1): 0, indexToHash(2): 1}
	votes := []Vote{
		{currentRoot: indexToHash(1), nextRoot: indexToHash(1), currentBalance: balance, nextBalance: balance},
		{currentRoot: indexToHash(1), nextRoot: indexToHash(2), currentBalance: balance, nextBalance: balance},
	}
	slashed := map[types.ValidatorIndex]bool{0: true, 1: true}

	delta, err := computeDeltas(context.Background(), len(indices), indices, votes, slashed)
	require.NoError(t, err)
	assert.DeepEqual(t, []int64{-2 * int64(balance), 0}, delta, "Slashed votes were not withdrawn")

	// The withdrawal happens once.
	delta, err = computeDeltas(context.Background(), len(indices), indices, votes, slashed)
	require.NoError(t, err)
	assert.DeepEqual(t, []int64{0, 0}, delta)
}

func TestComputeDelta_IndexOutOfRange(t *testing.T) {
	indices := map[[32]byte]uint64{indexToHash(1): 5}
	votes := []Vote{{nextRoot: indexToHash(1), nextBalance: 1}}

	_, err := computeDeltas(context.Background(), 1, indices, votes, map[types.ValidatorIndex]bool{})
	require.ErrorContains(t, "vote index 5 out of range", err)
}
