package blockchain

import (
	"context"
	"fmt"

	"github.com/forkchoice/beacon/beacon-chain/forkchoice"
	"github.com/forkchoice/beacon/beacon-chain/forkchoice/protoarray"
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/config/params"
	"github.com/forkchoice/beacon/encoding/bytesutil"
	"github.com/forkchoice/beacon/time/slots"
	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// newForkChoice creates a fork choice store anchored at the given block. Zero
// hash checkpoint roots refer to the anchor.
func (s *Service) newForkChoice(ctx context.Context, anchor *forkchoicetypes.BlockAndCheckpoints, justified, finalized *forkchoicetypes.Checkpoint) (forkchoice.ForkChoicer, error) {
	root := anchor.Block.Root
	if justified.Root == params.BeaconConfig().ZeroHash {
		justified = &forkchoicetypes.Checkpoint{Epoch: justified.Epoch, Root: root}
	}
	if finalized.Root == params.BeaconConfig().ZeroHash {
		finalized = &forkchoicetypes.Checkpoint{Epoch: finalized.Epoch, Root: root}
	}
	cfg := protoarray.DefaultConfig(justified, finalized)
	cfg.PruneThreshold = s.cfg.PruneThreshold
	cfg.InitialEpoch = finalized.Epoch
	fc, err := protoarray.New(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not create fork choice store")
	}
	if err := fc.ProcessBlock(ctx, anchor); err != nil {
		return nil, errors.Wrap(err, "could not insert anchor block")
	}
	return fc, nil
}

// initializeForkChoice anchors a new fork choice store at the first block the
// node receives and saves the anchor checkpoints. Callers hold the lock.
func (s *Service) initializeForkChoice(ctx context.Context, anchor *forkchoicetypes.BlockAndCheckpoints) error {
	cp := &forkchoicetypes.Checkpoint{Epoch: anchor.FinalizedCheckpoint.Epoch, Root: anchor.Block.Root}
	fc, err := s.newForkChoice(ctx, anchor, cp, cp)
	if err != nil {
		return err
	}
	if err := s.cfg.BeaconDB.SaveJustifiedCheckpoint(ctx, cp); err != nil {
		return errors.Wrap(err, "could not save justified checkpoint")
	}
	if err := s.cfg.BeaconDB.SaveFinalizedCheckpoint(ctx, cp); err != nil {
		return errors.Wrap(err, "could not save finalized checkpoint")
	}
	log.WithFields(logrus.Fields{
		"slot":  anchor.Block.Slot,
		"root":  fmt.Sprintf("%#x", bytesutil.Trunc(anchor.Block.Root[:])),
		"epoch": cp.Epoch,
	}).Info("Initialized fork choice store")
	s.forkChoiceStore = fc
	return nil
}

// rebuildForkChoiceStore replays the saved blocks, checkpoints and votes into
// a new fork choice store. The store is anchored at the finalized block.
// Saved blocks that no longer connect to the anchor are deleted. Callers hold
// the lock.
func (s *Service) rebuildForkChoiceStore(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.rebuildForkChoiceStore")
	defer span.End()

	beaconDB := s.cfg.BeaconDB
	justified, err := beaconDB.JustifiedCheckpoint(ctx)
	if err != nil {
		return errors.Wrap(err, "could not get justified checkpoint")
	}
	finalized, err := beaconDB.FinalizedCheckpoint(ctx)
	if err != nil {
		return errors.Wrap(err, "could not get finalized checkpoint")
	}
	blks, err := beaconDB.Blocks(ctx)
	if err != nil {
		return errors.Wrap(err, "could not get saved blocks")
	}
	if len(blks) == 0 {
		s.forkChoiceStore = nil
		s.head = nil
		return nil
	}

	anchor := blks[0]
	if finalized.Root != params.BeaconConfig().ZeroHash {
		anchor, err = beaconDB.Block(ctx, finalized.Root)
		if err != nil {
			return errors.Wrap(err, "could not get finalized block")
		}
		if anchor == nil {
			return errors.Wrapf(errMissingFinalizedBlock, "%#x", finalized.Root)
		}
	}
	fc, err := s.newForkChoice(ctx, anchor, justified, finalized)
	if err != nil {
		return err
	}

	var orphans [][32]byte
	for _, b := range blks {
		if b.Block.Root == anchor.Block.Root || b.Block.Slot < anchor.Block.Slot {
			continue
		}
		if err := fc.ProcessBlock(ctx, b); err != nil {
			if errors.Is(err, forkchoice.ErrUnknownParent) {
				orphans = append(orphans, b.Block.Root)
				continue
			}
			return errors.Wrapf(err, "could not replay block %#x", b.Block.Root)
		}
	}
	if len(orphans) > 0 {
		log.WithField("count", len(orphans)).Warn("Deleting saved blocks that do not descend from the finalized block")
		if err := beaconDB.DeleteBlocks(ctx, orphans); err != nil {
			return errors.Wrap(err, "could not delete orphaned blocks")
		}
		deletedBlocksCount.WithLabelValues("orphaned").Add(float64(len(orphans)))
	}
	if justified.Root != params.BeaconConfig().ZeroHash && !fc.HasNode(justified.Root) {
		return errors.Wrapf(errMissingJustifiedBlock, "%#x", justified.Root)
	}

	votes, err := beaconDB.Votes(ctx)
	if err != nil {
		return errors.Wrap(err, "could not get saved votes")
	}
	fc.SetVotes(votes)

	log.WithFields(logrus.Fields{
		"nodes":          fc.NodeCount(),
		"votes":          len(votes),
		"finalizedEpoch": fc.FinalizedCheckpoint().Epoch,
		"justifiedEpoch": fc.JustifiedCheckpoint().Epoch,
	}).Info("Rebuilt fork choice store from database")
	beaconFinalizedEpoch.Set(float64(fc.FinalizedCheckpoint().Epoch))
	beaconCurrentJustifiedEpoch.Set(float64(fc.JustifiedCheckpoint().Epoch))
	s.forkChoiceStore = fc
	s.head = nil
	return nil
}

// resync replaces a poisoned fork choice store with one rebuilt from the
// database. Votes of the poisoned store are carried over since they may be
// more recent than the last flush. Callers hold the lock.
func (s *Service) resync(ctx context.Context, cause error) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.resync")
	defer span.End()

	resyncCount.Inc()
	log.WithError(cause).Warn("Fork choice store poisoned, rebuilding from database")
	inMemory := s.forkChoiceStore.Votes()
	previousHead := s.head
	if err := s.rebuildForkChoiceStore(ctx); err != nil {
		s.failStatus = err
		return errors.Wrap(err, "could not rebuild fork choice store")
	}
	if s.forkChoiceStore == nil {
		return nil
	}
	s.forkChoiceStore.SetVotes(inMemory)
	s.head = previousHead
	s.queueEvent(&Event{Type: ForkChoiceResynced})

	root, err := s.forkChoiceStore.Head(ctx)
	if err != nil {
		if forkchoice.IsFatal(err) {
			s.failStatus = err
			return errors.Wrap(err, "rebuilt fork choice store is inconsistent")
		}
		log.WithError(err).Warn("Could not compute head after resync")
		return nil
	}
	s.failStatus = nil
	return s.saveHead(ctx, root)
}

// updateCheckpoints moves the store checkpoints forward to the ones carried
// by a newly processed block. Callers hold the lock.
func (s *Service) updateCheckpoints(ctx context.Context, b *forkchoicetypes.BlockAndCheckpoints) error {
	fc := s.forkChoiceStore
	if jc := b.JustifiedCheckpoint; jc.Epoch > fc.JustifiedCheckpoint().Epoch && fc.HasNode(jc.Root) {
		ok, err := s.shouldUpdateJustified(ctx, b.Block.Slot, jc)
		if err != nil {
			return err
		}
		if ok {
			if err := s.updateJustified(ctx, jc); err != nil {
				return err
			}
		}
	}
	if cp := b.FinalizedCheckpoint; cp.Epoch > fc.FinalizedCheckpoint().Epoch && fc.HasNode(cp.Root) {
		return s.updateFinalized(ctx, cp)
	}
	return nil
}

// shouldUpdateJustified returns true when a justified checkpoint from a block
// can be applied right away. Late in the epoch only checkpoints that extend
// the current justified block are applied, the others wait for the epoch
// boundary as best justified checkpoint.
func (s *Service) shouldUpdateJustified(ctx context.Context, blockSlot types.Slot, newJustified *forkchoicetypes.Checkpoint) (bool, error) {
	if slots.SinceEpochStarts(s.currentSlot(blockSlot)) < params.BeaconConfig().SafeSlotsToUpdateJustified {
		return true, nil
	}
	justified := s.forkChoiceStore.JustifiedCheckpoint()
	justifiedSlot, err := slots.EpochStart(justified.Epoch)
	if err != nil {
		return false, err
	}
	r, err := s.forkChoiceStore.AncestorRoot(ctx, newJustified.Root, justifiedSlot)
	if err != nil {
		return false, nil
	}
	return r == justified.Root, nil
}

// updateJustified applies and saves a justified checkpoint. Callers hold the lock.
func (s *Service) updateJustified(ctx context.Context, cp *forkchoicetypes.Checkpoint) error {
	if err := s.forkChoiceStore.UpdateJustifiedCheckpoint(ctx, cp); err != nil {
		return errors.Wrap(err, "could not update justified checkpoint")
	}
	justified := s.forkChoiceStore.JustifiedCheckpoint()
	if err := s.cfg.BeaconDB.SaveJustifiedCheckpoint(ctx, justified); err != nil {
		return errors.Wrap(err, "could not save justified checkpoint")
	}
	beaconCurrentJustifiedEpoch.Set(float64(justified.Epoch))
	return nil
}

// updateFinalized applies and saves a finalized checkpoint, then deletes the
// blocks fork choice pruned from the database. Callers hold the lock.
func (s *Service) updateFinalized(ctx context.Context, cp *forkchoicetypes.Checkpoint) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.updateFinalized")
	defer span.End()

	if _, err := s.forkChoiceStore.UpdateFinalizedCheckpoint(ctx, cp); err != nil {
		if forkchoice.IsFatal(err) {
			return s.resync(ctx, err)
		}
		return errors.Wrap(err, "could not update finalized checkpoint")
	}
	if err := s.cfg.BeaconDB.SaveFinalizedCheckpoint(ctx, cp); err != nil {
		return errors.Wrap(err, "could not save finalized checkpoint")
	}
	// Finalization may have moved the justified checkpoint as well.
	justified := s.forkChoiceStore.JustifiedCheckpoint()
	if err := s.cfg.BeaconDB.SaveJustifiedCheckpoint(ctx, justified); err != nil {
		return errors.Wrap(err, "could not save justified checkpoint")
	}
	beaconFinalizedEpoch.Set(float64(cp.Epoch))
	beaconCurrentJustifiedEpoch.Set(float64(justified.Epoch))

	pruned := s.forkChoiceStore.PrunedRoots()
	if len(pruned) == 0 {
		return nil
	}
	if err := s.cfg.BeaconDB.DeleteBlocks(ctx, pruned); err != nil {
		return errors.Wrap(err, "could not delete pruned blocks")
	}
	deletedBlocksCount.WithLabelValues("pruned").Add(float64(len(pruned)))
	log.WithFields(logrus.Fields{
		"finalizedEpoch": cp.Epoch,
		"count":          len(pruned),
	}).Debug("Deleted pruned blocks")
	s.queueEvent(&Event{
		Type: BlocksPruned,
		Data: &BlocksPrunedData{FinalizedCheckpoint: cp.Copy(), Roots: pruned},
	})
	return nil
}

// UpdateJustifiedCheckpoint applies a justified checkpoint computed outside of
// block processing.
func (s *Service) UpdateJustifiedCheckpoint(ctx context.Context, cp *forkchoicetypes.Checkpoint) error {
	if cp == nil {
		return forkchoice.ErrNilCheckpoint
	}
	defer s.sendQueuedEvents()
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.forkChoiceStore == nil {
		return forkchoice.ErrNotInitialized
	}
	if err := s.updateJustified(ctx, cp); err != nil {
		return err
	}
	return s.updateHead(ctx)
}

// UpdateFinalizedCheckpoint applies a finalized checkpoint computed outside of
// block processing.
func (s *Service) UpdateFinalizedCheckpoint(ctx context.Context, cp *forkchoicetypes.Checkpoint) error {
	if cp == nil {
		return forkchoice.ErrNilCheckpoint
	}
	defer s.sendQueuedEvents()
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.forkChoiceStore == nil {
		return forkchoice.ErrNotInitialized
	}
	if err := s.updateFinalized(ctx, cp); err != nil {
		return err
	}
	return s.updateHead(ctx)
}
