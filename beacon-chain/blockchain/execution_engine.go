package blockchain

import (
	"context"
	"fmt"

	"github.com/forkchoice/beacon/beacon-chain/forkchoice"
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/encoding/bytesutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// ReceivePayloadStatus applies the execution engine verdict on the payload of
// the block with the given root. A VALID verdict is persisted with the block,
// an INVALID verdict removes the block and its descendants from the database.
func (s *Service) ReceivePayloadStatus(ctx context.Context, root [32]byte, status forkchoicetypes.PayloadStatus) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.ReceivePayloadStatus")
	defer span.End()

	defer s.sendQueuedEvents()
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.forkChoiceStore == nil {
		return forkchoice.ErrNotInitialized
	}
	if _, err := s.forkChoiceStore.ProcessPayloadStatus(ctx, root, status); err != nil {
		return errors.Wrapf(err, "could not apply payload status %s", status)
	}

	switch status {
	case forkchoicetypes.Valid:
		if err := s.saveValidPayload(ctx, root); err != nil {
			return err
		}
	case forkchoicetypes.Invalid:
		if err := s.deleteInvalidBlocks(ctx, root); err != nil {
			return err
		}
	}
	return s.updateHead(ctx)
}

// deleteInvalidBlocks removes the blocks fork choice invalidated since the
// last call from the database. Callers hold the write lock.
func (s *Service) deleteInvalidBlocks(ctx context.Context, root [32]byte) error {
	invalidRoots := s.forkChoiceStore.InvalidatedRoots()
	if len(invalidRoots) == 0 {
		return nil
	}
	if err := s.cfg.BeaconDB.DeleteBlocks(ctx, invalidRoots); err != nil {
		return errors.Wrap(err, "could not delete invalid blocks")
	}
	deletedBlocksCount.WithLabelValues("invalid").Add(float64(len(invalidRoots)))
	log.WithFields(logrus.Fields{
		"root":  fmt.Sprintf("%#x", bytesutil.Trunc(root[:])),
		"count": len(invalidRoots),
	}).Warn("Pruned invalid blocks")
	s.queueEvent(&Event{
		Type: BlocksInvalidated,
		Data: &BlocksInvalidatedData{Root: root, Roots: invalidRoots},
	})
	return nil
}

// saveValidPayload rewrites the saved block with a VALID payload status.
func (s *Service) saveValidPayload(ctx context.Context, root [32]byte) error {
	saved, err := s.cfg.BeaconDB.Block(ctx, root)
	if err != nil {
		return errors.Wrap(err, "could not get block")
	}
	if saved == nil || saved.Block.PayloadStatus == forkchoicetypes.Valid {
		return nil
	}
	blk := *saved.Block
	blk.PayloadStatus = forkchoicetypes.Valid
	updated := *saved
	updated.Block = &blk
	return s.cfg.BeaconDB.SaveBlock(ctx, &updated)
}
