package kv

import (
	"context"

	"github.com/forkchoice/beacon/encoding/bytesutil"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// HeadRoot returns the last saved head block root, the zero hash if none.
func (s *Store) HeadRoot(ctx context.Context) ([32]byte, error) {
	_, span := trace.StartSpan(ctx, "BeaconDB.HeadRoot")
	defer span.End()
	var root [32]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(chainMetadataBucket).Get(headBlockRootKey)
		if enc == nil {
			return nil
		}
		root = bytesutil.ToBytes32(enc)
		return nil
	})
	return root, err
}

// SaveHeadRoot stores the head block root. The block must have been saved.
func (s *Store) SaveHeadRoot(ctx context.Context, root [32]byte) error {
	_, span := trace.StartSpan(ctx, "BeaconDB.SaveHeadRoot")
	defer span.End()
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(blockRootsBucket).Get(root[:]) == nil {
			return errors.Errorf("no block saved for head root %#x", root)
		}
		return tx.Bucket(chainMetadataBucket).Put(headBlockRootKey, root[:])
	})
}
