package kv

import (
	"context"

	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/encoding/bytesutil"
	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// Block retrieval by root. A missing block returns nil without error.
func (s *Store) Block(ctx context.Context, blockRoot [32]byte) (*forkchoicetypes.BlockAndCheckpoints, error) {
	ctx, span := trace.StartSpan(ctx, "BeaconDB.Block")
	defer span.End()
	// Return block from cache if it exists.
	if v, ok := s.blockCache.Get(blockRoot); v != nil && ok {
		return v.(*forkchoicetypes.BlockAndCheckpoints), nil
	}
	var blk *forkchoicetypes.BlockAndCheckpoints
	err := s.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket(blockRootsBucket).Get(blockRoot[:])
		if key == nil {
			return nil
		}
		enc := tx.Bucket(blocksBucket).Get(key)
		if enc == nil {
			return errors.Errorf("block index for %#x points at a missing block", blockRoot)
		}
		blk = &forkchoicetypes.BlockAndCheckpoints{}
		return decode(ctx, enc, blk)
	})
	if err != nil {
		return nil, err
	}
	if blk != nil {
		s.blockCache.Add(blockRoot, blk)
	}
	return blk, nil
}

// HasBlock checks if a block by root exists in the db.
func (s *Store) HasBlock(ctx context.Context, blockRoot [32]byte) bool {
	_, span := trace.StartSpan(ctx, "BeaconDB.HasBlock")
	defer span.End()
	if v, ok := s.blockCache.Get(blockRoot); v != nil && ok {
		return true
	}
	exists := false
	if err := s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(blockRootsBucket).Get(blockRoot[:]) != nil
		return nil
	}); err != nil { // This view never returns an error, but we'll handle anyway for sanity.
		panic(err)
	}
	return exists
}

// Blocks returns every stored block ordered by slot. Blocks of the same slot
// are ordered by root.
func (s *Store) Blocks(ctx context.Context) ([]*forkchoicetypes.BlockAndCheckpoints, error) {
	ctx, span := trace.StartSpan(ctx, "BeaconDB.Blocks")
	defer span.End()
	blocks := make([]*forkchoicetypes.BlockAndCheckpoints, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(blocksBucket).ForEach(func(k, v []byte) error {
			blk := &forkchoicetypes.BlockAndCheckpoints{}
			if err := decode(ctx, v, blk); err != nil {
				return errors.Wrapf(err, "could not decode block at key %#x", k)
			}
			blocks = append(blocks, blk)
			return nil
		})
	})
	return blocks, err
}

// SaveBlock to the db.
func (s *Store) SaveBlock(ctx context.Context, blk *forkchoicetypes.BlockAndCheckpoints) error {
	ctx, span := trace.StartSpan(ctx, "BeaconDB.SaveBlock")
	defer span.End()
	return s.SaveBlocks(ctx, []*forkchoicetypes.BlockAndCheckpoints{blk})
}

// SaveBlocks via bulk updates to the db.
func (s *Store) SaveBlocks(ctx context.Context, blks []*forkchoicetypes.BlockAndCheckpoints) error {
	ctx, span := trace.StartSpan(ctx, "BeaconDB.SaveBlocks")
	defer span.End()

	keys := make([][]byte, len(blks))
	encs := make([][]byte, len(blks))
	for i, blk := range blks {
		if blk == nil || blk.Block == nil {
			return errors.New("cannot save nil block")
		}
		enc, err := encode(ctx, blk)
		if err != nil {
			return err
		}
		keys[i] = blockKey(blk.Block.Slot, blk.Block.Root)
		encs[i] = enc
	}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(blocksBucket)
		rootsBkt := tx.Bucket(blockRootsBucket)
		for i, blk := range blks {
			root := blk.Block.Root
			if existing := rootsBkt.Get(root[:]); existing != nil {
				if err := bkt.Delete(copyBytes(existing)); err != nil {
					return err
				}
			}
			if err := bkt.Put(keys[i], encs[i]); err != nil {
				return err
			}
			if err := rootsBkt.Put(root[:], keys[i]); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	// Only committed blocks are cached.
	for _, blk := range blks {
		s.blockCache.Add(blk.Block.Root, blk)
	}
	return nil
}

// DeleteBlocks removes the blocks with the given roots. Unknown roots are
// skipped.
func (s *Store) DeleteBlocks(ctx context.Context, blockRoots [][32]byte) error {
	_, span := trace.StartSpan(ctx, "BeaconDB.DeleteBlocks")
	defer span.End()

	defer func() {
		for _, root := range blockRoots {
			s.blockCache.Remove(root)
		}
	}()
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(blocksBucket)
		rootsBkt := tx.Bucket(blockRootsBucket)
		for _, root := range blockRoots {
			key := copyBytes(rootsBkt.Get(root[:]))
			if key == nil {
				continue
			}
			if err := bkt.Delete(key); err != nil {
				return err
			}
			if err := rootsBkt.Delete(root[:]); err != nil {
				return err
			}
		}
		return nil
	})
}

// blockKey is the big endian slot followed by the block root.
func blockKey(slot types.Slot, root [32]byte) []byte {
	return append(bytesutil.Uint64ToBytesBigEndian(uint64(slot)), root[:]...)
}

// copyBytes detaches a value from the bolt page it was read from.
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cpy := make([]byte, len(b))
	copy(cpy, b)
	return cpy
}
