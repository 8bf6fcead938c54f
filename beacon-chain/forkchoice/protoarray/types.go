package protoarray

import (
	"sync"

	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	lru "github.com/hashicorp/golang-lru"
	types "github.com/prysmaticlabs/eth2-types"
)

// ForkChoice defines the overall fork choice store which includes all block nodes, validator's latest votes and balances.
type ForkChoice struct {
	lock             sync.RWMutex
	store            *Store
	votes            []Vote                        // tracks individual validator's last vote.
	slashedIndices   map[types.ValidatorIndex]bool // tracks validators whose votes were withdrawn.
	status           status                        // lifecycle of the store.
	fatalErr         error                         // the invariant violation that poisoned the store.
	prunedRoots      [][32]byte                    // non canonical roots pruned since the last drain.
	invalidatedRoots [][32]byte                    // roots invalidated since the last drain.
}

// Store defines the fork choice store which includes block nodes and the last view of checkpoint information.
type Store struct {
	pruneThreshold                uint64                      // do not prune tree unless threshold is reached.
	initialEpoch                  types.Epoch                 // the epoch the store was anchored at.
	justifiedCheckpoint           *forkchoicetypes.Checkpoint // latest justified checkpoint in store.
	prevJustifiedCheckpoint       *forkchoicetypes.Checkpoint // justified checkpoint before the latest update.
	bestJustifiedCheckpoint       *forkchoicetypes.Checkpoint // best justified checkpoint seen in blocks.
	unrealizedJustifiedCheckpoint *forkchoicetypes.Checkpoint // best unrealized justified checkpoint seen in blocks.
	unrealizedFinalizedCheckpoint *forkchoicetypes.Checkpoint // best unrealized finalized checkpoint seen in blocks.
	finalizedCheckpoint           *forkchoicetypes.Checkpoint // latest finalized checkpoint in store.
	nodes                         []*Node                     // list of block nodes, each node is a representation of one block.
	nodesIndices                  map[[32]byte]uint64         // the root of block node and the nodes index in the list.
	canonicalNodes                map[[32]byte]bool           // the canonical block nodes.
	prunedRoots                   *lru.Cache                  // roots recently removed by pruning.
	headRoot                      [32]byte                    // the head root computed by the last head call.
}

// Node defines the individual block which includes its block parent, ancestor and how much weight accounted for it.
// This is used as an array based stateful DAG for efficient fork choice look up.
type Node struct {
	slot                     types.Slot                    // slot of the block converted to the node.
	root                     [32]byte                      // root of the block converted to the node.
	parent                   uint64                        // parent index of this node.
	stateRoot                [32]byte                      // post state root of the block.
	targetRoot               [32]byte                      // checkpoint target root for the epoch of the block.
	justifiedEpoch           types.Epoch                   // justifiedEpoch of this node.
	finalizedEpoch           types.Epoch                   // finalizedEpoch of this node.
	unrealizedJustifiedEpoch types.Epoch                   // justified epoch the block would realize at the end of its epoch.
	unrealizedFinalizedEpoch types.Epoch                   // finalized epoch the block would realize at the end of its epoch.
	weight                   uint64                        // weight of this node.
	bestChild                uint64                        // bestChild index of this node.
	bestDescendant           uint64                        // bestDescendant of this node.
	status                   forkchoicetypes.PayloadStatus // execution payload status of the block.
	finalizedDescendant      bool                          // whether the finalized block is an ancestor of, or is, this node.
}

// Vote defines an individual validator's vote.
type Vote struct {
	currentRoot    [32]byte    // current voting root.
	nextRoot       [32]byte    // next voting root.
	nextEpoch      types.Epoch // epoch of next voting period.
	currentBalance uint64      // balance applied at the current voting root.
	nextBalance    uint64      // balance to apply at the next voting root.
}

type status uint8

const (
	uninitialized status = iota
	active
	poisoned
)

func (s status) String() string {
	switch s {
	case uninitialized:
		return "uninitialized"
	case active:
		return "active"
	case poisoned:
		return "poisoned"
	default:
		return "unknown"
	}
}
