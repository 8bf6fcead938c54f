// Package blockchain defines the life-cycle of the fork choice at the core of
// the beacon chain. It receives blocks, attestations and execution payload
// verdicts, persists them and keeps the head of the chain up to date.
package blockchain

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/forkchoice/beacon/async"
	"github.com/forkchoice/beacon/beacon-chain/db"
	"github.com/forkchoice/beacon/beacon-chain/forkchoice"
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/config/params"
	"github.com/forkchoice/beacon/time/slots"
	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
	"go.opencensus.io/trace"
)

// Service represents a service that handles the internal
// logic of managing the fork choice of the beacon chain.
type Service struct {
	cfg             *config
	ctx             context.Context
	cancel          context.CancelFunc
	lock            sync.RWMutex
	forkChoiceStore forkchoice.ForkChoicer
	head            *head
	eventFeed       *event.Feed
	pendingEvents   []*Event // sent once the lock is released.
	failStatus      error
	ready           chan struct{}
}

// config options for the service.
type config struct {
	BeaconDB         db.HeadAccessDatabase
	GenesisTime      time.Time
	PruneThreshold   uint64
	VotesFlushPeriod time.Duration
}

// This defines the current chain service's view of head.
type head struct {
	slot types.Slot // current head slot.
	root [32]byte   // current head root.
}

// NewService instantiates a new block service instance that will
// be registered into a running beacon node.
func NewService(ctx context.Context, opts ...Option) (*Service, error) {
	ctx, cancel := context.WithCancel(ctx)
	srv := &Service{
		ctx:       ctx,
		cancel:    cancel,
		eventFeed: new(event.Feed),
		ready:     make(chan struct{}),
		cfg: &config{
			PruneThreshold:   params.BeaconConfig().ProtoArrayPruneThreshold,
			VotesFlushPeriod: time.Duration(params.BeaconConfig().VotesFlushPeriod) * time.Second,
		},
	}
	for _, opt := range opts {
		if err := opt(srv); err != nil {
			cancel()
			return nil, err
		}
	}
	if srv.cfg.BeaconDB == nil {
		cancel()
		return nil, errNilBeaconDB
	}
	return srv, nil
}

// Start a blockchain service's main event loop.
func (s *Service) Start() {
	defer close(s.ready)
	if err := s.startFromSavedState(s.ctx); err != nil {
		log.WithError(err).Error("Could not restore fork choice from database")
		s.setFailStatus(err)
		return
	}
	if s.cfg.VotesFlushPeriod > 0 {
		async.RunEvery(s.ctx, s.cfg.VotesFlushPeriod, s.flushVotes)
	}
	if !s.cfg.GenesisTime.IsZero() {
		go s.spawnProcessSlotsRoutine()
	}
}

// Stop the blockchain service's main event loop and associated goroutines.
func (s *Service) Stop() error {
	defer s.cancel()
	return s.saveVotes(context.Background())
}

// Status always returns nil unless there is an error condition that causes
// this service to be unhealthy.
func (s *Service) Status() error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.failStatus != nil {
		return s.failStatus
	}
	if s.forkChoiceStore == nil {
		return nil
	}
	if err := s.forkChoiceStore.Poisoned(); err != nil {
		return errors.Wrap(forkchoice.ErrResyncRequired, err.Error())
	}
	return nil
}

func (s *Service) setFailStatus(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failStatus = err
}

// Ready is closed once Start restored the fork choice store from the database.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// EventFeed returns the feed on which head, pruning, invalidation and resync
// events are sent. Subscribers must keep up, Send blocks until every
// subscribed channel received the event.
func (s *Service) EventFeed() *event.Feed {
	return s.eventFeed
}

// ForkChoicer returns the current fork choice store, nil before the first block.
// The store is replaced when it gets rebuilt from the database.
func (s *Service) ForkChoicer() forkchoice.ForkChoicer {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.forkChoiceStore
}

// HeadRoot returns the root of the head block, the zero hash before the first block.
func (s *Service) HeadRoot() [32]byte {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.head == nil {
		return params.BeaconConfig().ZeroHash
	}
	return s.head.root
}

// HeadSlot returns the slot of the head block.
func (s *Service) HeadSlot() types.Slot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.head == nil {
		return 0
	}
	return s.head.slot
}

// FinalizedCheckpoint of the fork choice store, the genesis checkpoint before the first block.
func (s *Service) FinalizedCheckpoint() *forkchoicetypes.Checkpoint {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.forkChoiceStore == nil {
		return &forkchoicetypes.Checkpoint{Epoch: params.BeaconConfig().GenesisEpoch, Root: params.BeaconConfig().ZeroHash}
	}
	return s.forkChoiceStore.FinalizedCheckpoint()
}

// JustifiedCheckpoint of the fork choice store, the genesis checkpoint before the first block.
func (s *Service) JustifiedCheckpoint() *forkchoicetypes.Checkpoint {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.forkChoiceStore == nil {
		return &forkchoicetypes.Checkpoint{Epoch: params.BeaconConfig().GenesisEpoch, Root: params.BeaconConfig().ZeroHash}
	}
	return s.forkChoiceStore.JustifiedCheckpoint()
}

func (s *Service) startFromSavedState(ctx context.Context) error {
	defer s.sendQueuedEvents()
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.rebuildForkChoiceStore(ctx); err != nil {
		return err
	}
	if s.forkChoiceStore == nil {
		log.Info("No saved blocks, waiting for the first block")
		return nil
	}
	return s.updateHead(ctx)
}

// spawnProcessSlotsRoutine advances fork choice on every slot of the local clock.
func (s *Service) spawnProcessSlotsRoutine() {
	ticker := slots.NewSlotTicker(s.cfg.GenesisTime, params.BeaconConfig().SecondsPerSlot)
	defer ticker.Done()
	for {
		select {
		case <-s.ctx.Done():
			log.Debug("Context closed, exiting slot routine")
			return
		case slot := <-ticker.C():
			if err := s.ProcessSlot(s.ctx, slot); err != nil {
				log.WithError(err).WithField("slot", slot).Error("Could not process slot")
			}
		}
	}
}

// ProcessSlot runs the fork choice clock for the given slot, persists a
// justified checkpoint promoted at the epoch boundary and updates head.
func (s *Service) ProcessSlot(ctx context.Context, slot types.Slot) error {
	ctx, span := trace.StartSpan(ctx, "blockchain.ProcessSlot")
	defer span.End()

	defer s.sendQueuedEvents()
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.forkChoiceStore == nil {
		return nil
	}
	prevJustified := s.forkChoiceStore.JustifiedCheckpoint()
	if err := s.forkChoiceStore.NewSlot(ctx, slot); err != nil {
		return errors.Wrap(err, "could not process new slot")
	}
	if cp := s.forkChoiceStore.JustifiedCheckpoint(); cp.Epoch > prevJustified.Epoch {
		if err := s.cfg.BeaconDB.SaveJustifiedCheckpoint(ctx, cp); err != nil {
			return errors.Wrap(err, "could not save justified checkpoint")
		}
		beaconCurrentJustifiedEpoch.Set(float64(cp.Epoch))
	}
	return s.updateHead(ctx)
}

// currentSlot is the slot of the local clock, or the given slot of the block
// being processed when no genesis time is configured.
func (s *Service) currentSlot(fallback types.Slot) types.Slot {
	if s.cfg.GenesisTime.IsZero() {
		return fallback
	}
	return slots.CurrentSlot(uint64(s.cfg.GenesisTime.Unix()))
}

func (s *Service) flushVotes() {
	if err := s.saveVotes(s.ctx); err != nil {
		log.WithError(err).Error("Could not persist votes")
	}
}

// saveVotes persists the latest message of every validator.
func (s *Service) saveVotes(ctx context.Context) error {
	s.lock.RLock()
	fc := s.forkChoiceStore
	s.lock.RUnlock()
	if fc == nil {
		return nil
	}
	votes := fc.Votes()
	if len(votes) == 0 {
		return nil
	}
	return s.cfg.BeaconDB.SaveVotes(ctx, votes)
}
