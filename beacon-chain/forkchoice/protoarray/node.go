package protoarray

import (
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	types "github.com/prysmaticlabs/eth2-types"
)

// Slot of the fork choice node.
func (n *Node) Slot() types.Slot {
	return n.slot
}

// Root of the fork choice node.
func (n *Node) Root() [32]byte {
	return n.root
}

// Parent of the fork choice node.
func (n *Node) Parent() uint64 {
	return n.parent
}

// StateRoot of the fork choice node.
func (n *Node) StateRoot() [32]byte {
	return n.stateRoot
}

// TargetRoot of the fork choice node.
func (n *Node) TargetRoot() [32]byte {
	return n.targetRoot
}

// JustifiedEpoch of the fork choice node.
func (n *Node) JustifiedEpoch() types.Epoch {
	return n.justifiedEpoch
}

// FinalizedEpoch of the fork choice node.
func (n *Node) FinalizedEpoch() types.Epoch {
	return n.finalizedEpoch
}

// UnrealizedJustifiedEpoch of the fork choice node.
func (n *Node) UnrealizedJustifiedEpoch() types.Epoch {
	return n.unrealizedJustifiedEpoch
}

// UnrealizedFinalizedEpoch of the fork choice node.
func (n *Node) UnrealizedFinalizedEpoch() types.Epoch {
	return n.unrealizedFinalizedEpoch
}

// Weight of the fork choice node.
func (n *Node) Weight() uint64 {
	return n.weight
}

// BestChild of the fork choice node.
func (n *Node) BestChild() uint64 {
	return n.bestChild
}

// BestDescendant of the fork choice node.
func (n *Node) BestDescendant() uint64 {
	return n.bestDescendant
}

// Status of the execution payload of the fork choice node.
func (n *Node) Status() forkchoicetypes.PayloadStatus {
	return n.status
}
