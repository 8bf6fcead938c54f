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

// SaveVotes persists the latest message of each validator, keyed by the big
// endian validator index. Existing messages of other validators are kept.
func (s *Store) SaveVotes(ctx context.Context, votes map[types.ValidatorIndex]*forkchoicetypes.LatestMessage) error {
	ctx, span := trace.StartSpan(ctx, "BeaconDB.SaveVotes")
	defer span.End()

	encs := make(map[types.ValidatorIndex][]byte, len(votes))
	for idx, msg := range votes {
		if msg == nil {
			continue
		}
		enc, err := encode(ctx, msg)
		if err != nil {
			return errors.Wrapf(err, "could not encode vote of validator %d", idx)
		}
		encs[idx] = enc
	}
	return s.db.Batch(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(votesBucket)
		for idx, enc := range encs {
			if err := bkt.Put(bytesutil.Uint64ToBytesBigEndian(uint64(idx)), enc); err != nil {
				return err
			}
		}
		return nil
	})
}

// Votes returns every persisted latest message keyed by validator index.
func (s *Store) Votes(ctx context.Context) (map[types.ValidatorIndex]*forkchoicetypes.LatestMessage, error) {
	ctx, span := trace.StartSpan(ctx, "BeaconDB.Votes")
	defer span.End()

	votes := make(map[types.ValidatorIndex]*forkchoicetypes.LatestMessage)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(votesBucket).ForEach(func(k, v []byte) error {
			msg := &forkchoicetypes.LatestMessage{}
			if err := decode(ctx, v, msg); err != nil {
				return err
			}
			votes[types.ValidatorIndex(bytesutil.BytesToUint64BigEndian(k))] = msg
			return nil
		})
	})
	return votes, err
}
