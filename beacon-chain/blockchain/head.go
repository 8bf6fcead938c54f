package blockchain

import (
	"context"
	"fmt"

	"github.com/forkchoice/beacon/beacon-chain/forkchoice"
	"github.com/forkchoice/beacon/encoding/bytesutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// updateHead determines the head from the fork choice store and saves it.
// A poisoned store is rebuilt from the database. Callers hold the lock.
func (s *Service) updateHead(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.updateHead")
	defer span.End()

	root, err := s.forkChoiceStore.Head(ctx)
	if err != nil {
		if forkchoice.IsFatal(err) {
			return s.resync(ctx, err)
		}
		log.WithError(err).Warn("Could not update head")
		return nil
	}
	return s.saveHead(ctx, root)
}

// This saves head info to the local service cache, it also saves the
// new head root to the DB. Callers hold the lock.
func (s *Service) saveHead(ctx context.Context, headRoot [32]byte) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.saveHead")
	defer span.End()

	// Do nothing if head hasn't changed.
	if s.head != nil && headRoot == s.head.root {
		return nil
	}

	newHeadBlock, err := s.cfg.BeaconDB.Block(ctx, headRoot)
	if err != nil {
		return errors.Wrap(err, "could not get head block")
	}
	if newHeadBlock == nil || newHeadBlock.Block == nil {
		return errors.Wrapf(errNilHeadBlock, "%#x", headRoot)
	}
	if err := s.cfg.BeaconDB.SaveHeadRoot(ctx, headRoot); err != nil {
		return errors.Wrap(err, "could not save head root in DB")
	}

	var previousRoot [32]byte
	reorg := false
	if s.head != nil {
		previousRoot = s.head.root
		// A chain re-org occurred if the new head does not build on the old one.
		reorg = newHeadBlock.Block.ParentRoot != s.head.root
	}
	if reorg {
		log.WithFields(logrus.Fields{
			"newSlot": fmt.Sprintf("%d", newHeadBlock.Block.Slot),
			"oldSlot": fmt.Sprintf("%d", s.head.slot),
			"newRoot": fmt.Sprintf("%#x", bytesutil.Trunc(headRoot[:])),
			"oldRoot": fmt.Sprintf("%#x", bytesutil.Trunc(previousRoot[:])),
		}).Debug("Chain reorg occurred")
		reorgCount.Inc()
	}

	s.head = &head{
		slot: newHeadBlock.Block.Slot,
		root: headRoot,
	}
	beaconHeadSlot.Set(float64(newHeadBlock.Block.Slot))
	s.queueEvent(&Event{
		Type: HeadUpdated,
		Data: &HeadUpdatedData{
			Slot:         newHeadBlock.Block.Slot,
			Root:         headRoot,
			PreviousRoot: previousRoot,
			Reorg:        reorg,
		},
	})
	return nil
}
