package blockchain

import (
	"context"

	"github.com/forkchoice/beacon/beacon-chain/forkchoice"
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// ReceiveBlock is a function that defines the operations that are performed on
// a block that passed state transition. The operations consist of:
//  1. Save the block to the db
//  2. Insert the block into the fork choice store, dropping it from the db
//     again when it descends from an invalid payload
//  3. Move the justified and finalized checkpoints forward
//  4. Update head
//
// The first block received by an empty node anchors the fork choice store.
func (s *Service) ReceiveBlock(ctx context.Context, b *forkchoicetypes.BlockAndCheckpoints) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.ReceiveBlock")
	defer span.End()

	if b == nil || b.Block == nil {
		return errNilBlock
	}
	if b.JustifiedCheckpoint == nil || b.FinalizedCheckpoint == nil {
		return errors.Wrap(forkchoice.ErrNilCheckpoint, "block checkpoints are required")
	}

	defer s.sendQueuedEvents()
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.forkChoiceStore != nil && s.forkChoiceStore.HasNode(b.Block.Root) {
		return nil
	}
	if err := s.cfg.BeaconDB.SaveBlock(ctx, b); err != nil {
		return errors.Wrap(err, "could not save block")
	}

	if s.forkChoiceStore == nil {
		if err := s.initializeForkChoice(ctx, b); err != nil {
			return err
		}
	} else if err := s.forkChoiceStore.ProcessBlock(ctx, b); err != nil {
		if forkchoice.IsFatal(err) {
			return s.resync(ctx, err)
		}
		if delErr := s.cfg.BeaconDB.DeleteBlocks(ctx, [][32]byte{b.Block.Root}); delErr != nil {
			log.WithError(delErr).Error("Could not delete rejected block")
		}
		return errors.Wrap(err, "could not process block from fork choice service")
	}
	logBlockProcessed(b)
	if err := s.deleteInvalidBlocks(ctx, b.Block.Root); err != nil {
		return err
	}

	if err := s.updateCheckpoints(ctx, b); err != nil {
		return err
	}
	return s.updateHead(ctx)
}
