package protoarray

import (
	"github.com/forkchoice/beacon/beacon-chain/forkchoice"
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/pkg/errors"
)

// leadsToViableHead returns true if the node or the best descendent of the node is viable for head.
func (s *Store) leadsToViableHead(node *Node) (bool, error) {
	var bestDescendentViable bool
	bestDescendentIndex := node.bestDescendant

	// If the best descendant is not part of the leaves.
	if bestDescendentIndex != NonExistentNode {
		// Protection against out of bound, best descendent index can not be
		// exceeds length of nodes list.
		if bestDescendentIndex >= uint64(len(s.nodes)) {
			return false, errors.Wrapf(forkchoice.ErrInvariantViolation,
				"best descendant index %d out of range, node count %d", bestDescendentIndex, len(s.nodes))
		}

		bestDescendentNode := s.nodes[bestDescendentIndex]
		bestDescendentViable = s.viableForHead(bestDescendentNode)
	}

	// The node is viable as long as the best descendent is viable.
	return bestDescendentViable || s.viableForHead(node), nil
}

// viableForHead returns true if the node is viable to head.
// Invalid payloads are never viable. Once finality moved past the initial
// epoch a node must descend from the finalized block, or pull up to exactly
// the justified and finalized checkpoints of the store.
func (s *Store) viableForHead(node *Node) bool {
	if node.status == forkchoicetypes.Invalid {
		return false
	}
	if s.finalizedCheckpoint.Epoch <= s.initialEpoch {
		return true
	}
	if node.finalizedDescendant {
		return true
	}
	return node.unrealizedJustifiedEpoch == s.justifiedCheckpoint.Epoch &&
		node.unrealizedFinalizedEpoch == s.finalizedCheckpoint.Epoch
}

// updateFinalizedDescendants recomputes which nodes descend from the
// finalized block. Parents precede children so a single forward pass is enough.
func (s *Store) updateFinalizedDescendants() error {
	finalizedRoot := s.finalizedCheckpoint.Root
	for i, n := range s.nodes {
		if n.root == finalizedRoot {
			n.finalizedDescendant = true
			continue
		}
		if n.parent == NonExistentNode {
			n.finalizedDescendant = false
			continue
		}
		if n.parent >= uint64(i) {
			return errors.Wrapf(forkchoice.ErrInvariantViolation,
				"node %d has parent index %d", i, n.parent)
		}
		n.finalizedDescendant = s.nodes[n.parent].finalizedDescendant
	}
	return nil
}
