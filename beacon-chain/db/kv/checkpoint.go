package kv

import (
	"context"

	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/config/params"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

var errMissingBlockForCheckpoint = errors.New("missing block for checkpoint root")

// JustifiedCheckpoint returns the latest justified checkpoint in beacon chain.
func (s *Store) JustifiedCheckpoint(ctx context.Context) (*forkchoicetypes.Checkpoint, error) {
	ctx, span := trace.StartSpan(ctx, "BeaconDB.JustifiedCheckpoint")
	defer span.End()
	return s.checkpoint(ctx, justifiedCheckpointKey)
}

// FinalizedCheckpoint returns the latest finalized checkpoint in beacon chain.
func (s *Store) FinalizedCheckpoint(ctx context.Context) (*forkchoicetypes.Checkpoint, error) {
	ctx, span := trace.StartSpan(ctx, "BeaconDB.FinalizedCheckpoint")
	defer span.End()
	return s.checkpoint(ctx, finalizedCheckpointKey)
}

// SaveJustifiedCheckpoint saves justified checkpoint in beacon chain.
func (s *Store) SaveJustifiedCheckpoint(ctx context.Context, checkpoint *forkchoicetypes.Checkpoint) error {
	ctx, span := trace.StartSpan(ctx, "BeaconDB.SaveJustifiedCheckpoint")
	defer span.End()
	return s.saveCheckpoint(ctx, justifiedCheckpointKey, checkpoint)
}

// SaveFinalizedCheckpoint saves finalized checkpoint in beacon chain.
func (s *Store) SaveFinalizedCheckpoint(ctx context.Context, checkpoint *forkchoicetypes.Checkpoint) error {
	ctx, span := trace.StartSpan(ctx, "BeaconDB.SaveFinalizedCheckpoint")
	defer span.End()
	return s.saveCheckpoint(ctx, finalizedCheckpointKey, checkpoint)
}

// checkpoint returns the zero hash checkpoint at genesis when nothing was
// saved under the key yet.
func (s *Store) checkpoint(ctx context.Context, key []byte) (*forkchoicetypes.Checkpoint, error) {
	var checkpoint *forkchoicetypes.Checkpoint
	err := s.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(checkpointBucket).Get(key)
		if enc == nil {
			checkpoint = &forkchoicetypes.Checkpoint{
				Epoch: params.BeaconConfig().GenesisEpoch,
				Root:  params.BeaconConfig().ZeroHash,
			}
			return nil
		}
		checkpoint = &forkchoicetypes.Checkpoint{}
		return decode(ctx, enc, checkpoint)
	})
	return checkpoint, err
}

// saveCheckpoint requires the block of the checkpoint root to be stored, a
// checkpoint on the zero hash is accepted before genesis was saved.
func (s *Store) saveCheckpoint(ctx context.Context, key []byte, checkpoint *forkchoicetypes.Checkpoint) error {
	enc, err := encode(ctx, checkpoint)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if checkpoint.Root != params.BeaconConfig().ZeroHash && tx.Bucket(blockRootsBucket).Get(checkpoint.Root[:]) == nil {
			return errors.Wrapf(errMissingBlockForCheckpoint, "%#x", checkpoint.Root)
		}
		return tx.Bucket(checkpointBucket).Put(key, enc)
	})
}
