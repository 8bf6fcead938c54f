package forkchoice

import (
	"context"

	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	fieldparams "github.com/forkchoice/beacon/config/fieldparams"
	types "github.com/prysmaticlabs/eth2-types"
)

// ForkChoicer represents the full fork choice interface composed of all the sub-interfaces.
type ForkChoicer interface {
	HeadRetriever        // to compute head.
	BlockProcessor       // to track new block for fork choice.
	AttestationProcessor // to track new attestation for fork choice.
	Getter               // to retrieve fork choice information.
	Setter               // to set fork choice information.
}

// HeadRetriever retrieves head root and optimistic info of the current chain.
type HeadRetriever interface {
	Head(context.Context) ([32]byte, error)
	CachedHeadRoot() [32]byte
	Tips() ([][32]byte, []types.Slot)
	IsOptimistic(root [32]byte) (bool, error)
}

// BlockProcessor processes the block that's used for accounting fork choice.
type BlockProcessor interface {
	ProcessBlock(context.Context, *forkchoicetypes.BlockAndCheckpoints) error
}

// AttestationProcessor processes the attestation that's used for accounting fork choice.
type AttestationProcessor interface {
	ProcessAttestation(ctx context.Context, validatorIndex types.ValidatorIndex, root [32]byte, targetEpoch types.Epoch, effectiveBalance uint64)
	UpdateBalances(ctx context.Context, balances []uint64)
	InsertSlashedIndex(context.Context, types.ValidatorIndex)
	IsSlashed(types.ValidatorIndex) bool
}

// Getter returns fork choice related information.
type Getter interface {
	HasNode([32]byte) bool
	HasParent(root [32]byte) bool
	AncestorRoot(ctx context.Context, root [32]byte, slot types.Slot) ([32]byte, error)
	CommonAncestorRoot(ctx context.Context, root1 [32]byte, root2 [32]byte) ([32]byte, types.Slot, error)
	IsCanonical(root [32]byte) bool
	Weight(root [32]byte) (uint64, error)
	NodeCount() int
	FinalizedCheckpoint() *forkchoicetypes.Checkpoint
	JustifiedCheckpoint() *forkchoicetypes.Checkpoint
	PreviousJustifiedCheckpoint() *forkchoicetypes.Checkpoint
	BestJustifiedCheckpoint() *forkchoicetypes.Checkpoint
	UnrealizedJustifiedCheckpoint() *forkchoicetypes.Checkpoint
	Votes() map[types.ValidatorIndex]*forkchoicetypes.LatestMessage
	Nodes() []*forkchoicetypes.Node
	Poisoned() error
}

// Setter allows to set forkchoice information
type Setter interface {
	SetOptimisticToValid(context.Context, [fieldparams.RootLength]byte) error
	SetOptimisticToInvalid(context.Context, [fieldparams.RootLength]byte) ([][32]byte, error)
	ProcessPayloadStatus(context.Context, [fieldparams.RootLength]byte, forkchoicetypes.PayloadStatus) ([][32]byte, error)
	UpdateJustifiedCheckpoint(context.Context, *forkchoicetypes.Checkpoint) error
	UpdateFinalizedCheckpoint(context.Context, *forkchoicetypes.Checkpoint) ([][32]byte, error)
	SetVotes(map[types.ValidatorIndex]*forkchoicetypes.LatestMessage)
	NewSlot(context.Context, types.Slot) error
	PrunedRoots() [][32]byte
	InvalidatedRoots() [][32]byte
}
