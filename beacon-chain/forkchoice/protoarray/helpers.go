package protoarray

import (
	"context"

	"github.com/forkchoice/beacon/beacon-chain/forkchoice"
	"github.com/forkchoice/beacon/config/params"
	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
	"go.opencensus.io/trace"
)

// This computes validator balance delta from validator votes.
// It returns a list of deltas that represents the difference between old balances and new balances.
// Votes are rotated in place, the next root and balance become the current
// ones once they have been applied.
func computeDeltas(
	ctx context.Context,
	count int,
	blockIndices map[[32]byte]uint64,
	votes []Vote,
	slashedIndices map[types.ValidatorIndex]bool,
) ([]int64, error) {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.computeDeltas")
	defer span.End()

	deltas := make([]int64, count)
	zeroHash := params.BeaconConfig().ZeroHash

	for validatorIndex := range votes {
		vote := &votes[validatorIndex]

		// Skip if validator has been slashed. Its vote is withdrawn once and
		// never counted again.
		if slashedIndices[types.ValidatorIndex(validatorIndex)] {
			if vote.currentBalance > 0 {
				if err := subtractBalance(deltas, blockIndices, vote.currentRoot, vote.currentBalance); err != nil {
					return nil, err
				}
			}
			vote.currentBalance = 0
			vote.nextBalance = 0
			continue
		}

		// Skip if validator has never voted.
		if vote.nextRoot == zeroHash && vote.currentBalance == 0 {
			continue
		}

		// Only votes whose root or balance changed produce a delta.
		if vote.currentRoot == vote.nextRoot && vote.currentBalance == vote.nextBalance {
			continue
		}

		// Ignore the current or next vote if it is not known in `blockIndices`.
		// We assume that it is outside of our tree (ie. pre-finalization) and therefore not interesting.
		if err := subtractBalance(deltas, blockIndices, vote.currentRoot, vote.currentBalance); err != nil {
			return nil, err
		}

		nextDeltaIndex, ok := blockIndices[vote.nextRoot]
		if !ok {
			// The next root is not in the tree yet, withdraw the current vote
			// and keep the next one pending.
			vote.currentRoot = zeroHash
			vote.currentBalance = 0
			continue
		}
		if nextDeltaIndex >= uint64(len(deltas)) {
			return nil, errors.Wrapf(forkchoice.ErrInvariantViolation,
				"vote index %d out of range, node count %d", nextDeltaIndex, len(deltas))
		}
		deltas[nextDeltaIndex] += int64(vote.nextBalance)

		// Rotate the validator vote.
		vote.currentRoot = vote.nextRoot
		vote.currentBalance = vote.nextBalance
	}

	return deltas, nil
}

func subtractBalance(deltas []int64, blockIndices map[[32]byte]uint64, root [32]byte, balance uint64) error {
	index, ok := blockIndices[root]
	if !ok {
		return nil
	}
	if index >= uint64(len(deltas)) {
		return errors.Wrapf(forkchoice.ErrInvariantViolation,
			"vote index %d out of range, node count %d", index, len(deltas))
	}
	deltas[index] -= int64(balance)
	return nil
}
