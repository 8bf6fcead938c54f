package blockchain

import (
	"time"

	"github.com/forkchoice/beacon/beacon-chain/db"
)

// Option for the blockchain service.
type Option func(s *Service) error

// WithDatabase for head access.
func WithDatabase(beaconDB db.HeadAccessDatabase) Option {
	return func(s *Service) error {
		s.cfg.BeaconDB = beaconDB
		return nil
	}
}

// WithGenesisTime starts the slot ticker at the given genesis time. Without
// it the service only advances on explicit ProcessSlot calls.
func WithGenesisTime(t time.Time) Option {
	return func(s *Service) error {
		s.cfg.GenesisTime = t
		return nil
	}
}

// WithPruneThreshold sets the finalized index after which the fork choice
// node array is compacted.
func WithPruneThreshold(threshold uint64) Option {
	return func(s *Service) error {
		s.cfg.PruneThreshold = threshold
		return nil
	}
}

// WithVotesFlushPeriod sets how often latest messages are persisted. Zero
// disables periodic flushing, votes are still saved on Stop.
func WithVotesFlushPeriod(period time.Duration) Option {
	return func(s *Service) error {
		s.cfg.VotesFlushPeriod = period
		return nil
	}
}
