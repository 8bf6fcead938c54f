package blockchain

import (
	"context"

	"github.com/forkchoice/beacon/beacon-chain/forkchoice"
	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
	"go.opencensus.io/trace"
)

// ReceiveAttestation records the votes of the attesting validators for the
// given block root. balances holds the effective balance of each attesting
// validator. Votes are only applied to weights by the next head update.
func (s *Service) ReceiveAttestation(ctx context.Context, blockRoot [32]byte, targetEpoch types.Epoch, indices []types.ValidatorIndex, balances []uint64) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.ReceiveAttestation")
	defer span.End()

	if len(indices) != len(balances) {
		return errors.Wrapf(errWrongBalanceCount, "%d indices, %d balances", len(indices), len(balances))
	}

	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.forkChoiceStore == nil {
		return forkchoice.ErrNotInitialized
	}
	for i, idx := range indices {
		s.forkChoiceStore.ProcessAttestation(ctx, idx, blockRoot, targetEpoch, balances[i])
	}
	return nil
}

// ReceiveAttesterSlashing withdraws the votes of a slashed validator from fork choice.
func (s *Service) ReceiveAttesterSlashing(ctx context.Context, indices []types.ValidatorIndex) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.ReceiveAttesterSlashing")
	defer span.End()

	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.forkChoiceStore == nil {
		return forkchoice.ErrNotInitialized
	}
	for _, idx := range indices {
		s.forkChoiceStore.InsertSlashedIndex(ctx, idx)
	}
	return nil
}

// UpdateBalances sets the effective balances of the justified state, indexed
// by validator index.
func (s *Service) UpdateBalances(ctx context.Context, balances []uint64) error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.forkChoiceStore == nil {
		return forkchoice.ErrNotInitialized
	}
	s.forkChoiceStore.UpdateBalances(ctx, balances)
	return nil
}
