package blockchain

import (
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	types "github.com/prysmaticlabs/eth2-types"
)

// EventType of a fork choice notification.
type EventType int

const (
	// HeadUpdated is sent when the head of the chain changes.
	HeadUpdated EventType = iota + 1
	// BlocksPruned is sent when finalization removed blocks from fork choice.
	BlocksPruned
	// BlocksInvalidated is sent when the execution layer rejected a payload.
	BlocksInvalidated
	// ForkChoiceResynced is sent when the fork choice store was rebuilt from the database.
	ForkChoiceResynced
)

// Event is the value sent on the service event feed. Data is one of the
// *Data types of this file, nil for ForkChoiceResynced.
type Event struct {
	Type EventType
	Data interface{}
}

// HeadUpdatedData is the data of a HeadUpdated event.
type HeadUpdatedData struct {
	Slot         types.Slot
	Root         [32]byte
	PreviousRoot [32]byte
	// Reorg is set when the new head does not extend the previous one.
	Reorg bool
}

// BlocksPrunedData is the data of a BlocksPruned event.
type BlocksPrunedData struct {
	FinalizedCheckpoint *forkchoicetypes.Checkpoint
	Roots               [][32]byte
}

// BlocksInvalidatedData is the data of a BlocksInvalidated event.
type BlocksInvalidatedData struct {
	Root  [32]byte
	Roots [][32]byte
}

// queueEvent buffers an event until the service lock is released. Callers
// hold the write lock.
func (s *Service) queueEvent(e *Event) {
	s.pendingEvents = append(s.pendingEvents, e)
}

// sendQueuedEvents publishes the buffered events in order. Callers must not
// hold the lock, subscribers are free to call back into the service.
func (s *Service) sendQueuedEvents() {
	s.lock.Lock()
	events := s.pendingEvents
	s.pendingEvents = nil
	s.lock.Unlock()
	for _, e := range events {
		s.eventFeed.Send(e)
	}
}
