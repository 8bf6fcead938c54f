package protoarray

import (
	"bytes"
	"context"
	"fmt"

	"github.com/forkchoice/beacon/beacon-chain/forkchoice"
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/encoding/bytesutil"
	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// NonExistentNode defines an unknown node which is used for the array based stateful DAG.
const NonExistentNode = ^uint64(0)

// PruneThreshold of fork choice store.
func (s *Store) PruneThreshold() uint64 {
	return s.pruneThreshold
}

// JustifiedEpoch of fork choice store.
func (s *Store) JustifiedEpoch() types.Epoch {
	return s.justifiedCheckpoint.Epoch
}

// FinalizedEpoch of fork choice store.
func (s *Store) FinalizedEpoch() types.Epoch {
	return s.finalizedCheckpoint.Epoch
}

// nodeByIndex returns the node at index. An index outside of the array is an
// invariant violation since indices never escape the fork choice lock.
func (s *Store) nodeByIndex(index uint64) (*Node, error) {
	if index >= uint64(len(s.nodes)) {
		return nil, errors.Wrapf(forkchoice.ErrInvariantViolation,
			"node index %d out of range, node count %d", index, len(s.nodes))
	}
	return s.nodes[index], nil
}

// head starts from justified root and then follows the best descendant links
// to find the best block for head.
func (s *Store) head(ctx context.Context) ([32]byte, error) {
	ctx, span := trace.StartSpan(ctx, "protoArrayForkChoice.head")
	defer span.End()

	justifiedRoot := s.justifiedCheckpoint.Root
	// Justified index has to be valid in node indices map, and can not be out of bound.
	justifiedIndex, ok := s.nodesIndices[justifiedRoot]
	if !ok {
		return [32]byte{}, errors.Wrapf(forkchoice.ErrJustifiedRootNotFound, "%#x", justifiedRoot)
	}
	justifiedNode, err := s.nodeByIndex(justifiedIndex)
	if err != nil {
		return [32]byte{}, err
	}

	bestDescendantIndex := justifiedNode.bestDescendant
	// If the justified node doesn't have a best descendant,
	// the best node is itself.
	if bestDescendantIndex == NonExistentNode {
		bestDescendantIndex = justifiedIndex
	}
	bestNode, err := s.nodeByIndex(bestDescendantIndex)
	if err != nil {
		return [32]byte{}, err
	}

	if !s.viableForHead(bestNode) {
		if !s.viableForHead(justifiedNode) {
			return [32]byte{}, errors.Wrapf(errInvalidBestNode,
				"head at slot %d with status %s, unrealized justified epoch %d, unrealized finalized epoch %d",
				bestNode.slot, bestNode.status, bestNode.unrealizedJustifiedEpoch, bestNode.unrealizedFinalizedEpoch)
		}
		// Nothing viable below the justified node, it is the head itself.
		bestNode = justifiedNode
		bestDescendantIndex = justifiedIndex
	}

	// Update metrics and the canonical chain when head changes.
	if bestNode.root != s.headRoot {
		headChangesCount.Inc()
		headSlotNumber.Set(float64(bestNode.slot))
		log.WithFields(logrus.Fields{
			"oldHeadRoot": fmt.Sprintf("%#x", bytesutil.Trunc(s.headRoot[:])),
			"newHeadRoot": fmt.Sprintf("%#x", bytesutil.Trunc(bestNode.root[:])),
			"slot":        bestNode.slot,
			"weight":      bestNode.weight,
		}).Debug("Head changed")
		s.headRoot = bestNode.root
	}
	if err := s.updateCanonicalNodes(bestDescendantIndex); err != nil {
		return [32]byte{}, err
	}

	return bestNode.root, nil
}

// updateCanonicalNodes rebuilds the canonical mapping by walking from the head
// node up to the start of the array.
func (s *Store) updateCanonicalNodes(headIndex uint64) error {
	canonical := make(map[[32]byte]bool, len(s.canonicalNodes))
	for i := headIndex; i != NonExistentNode; {
		n, err := s.nodeByIndex(i)
		if err != nil {
			return err
		}
		canonical[n.root] = true
		if n.parent != NonExistentNode && n.parent >= i {
			return errors.Wrapf(forkchoice.ErrInvariantViolation, "node %d has parent index %d", i, n.parent)
		}
		i = n.parent
	}
	s.canonicalNodes = canonical
	return nil
}

// insert registers a new block node to the fork choice store's node list.
// It then updates the new node's parent with best child and descendant node.
func (s *Store) insert(ctx context.Context, parentRoot [32]byte, n *Node) error {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.insert")
	defer span.End()

	// Return if the block has been inserted into Store before.
	if _, ok := s.nodesIndices[n.root]; ok {
		return nil
	}
	if s.prunedRoots != nil && s.prunedRoots.Contains(n.root) {
		return errors.Wrapf(forkchoice.ErrPrunedRoot, "%#x", n.root)
	}

	index := uint64(len(s.nodes))
	parentIndex, ok := s.nodesIndices[parentRoot]
	if !ok {
		// Only the first block, the anchor of the tree, may come without its parent.
		if len(s.nodes) > 0 {
			return errors.Wrapf(forkchoice.ErrUnknownParent, "block %#x, parent %#x", n.root, parentRoot)
		}
		parentIndex = NonExistentNode
	}

	n.parent = parentIndex
	n.weight = 0
	n.bestChild = NonExistentNode
	n.bestDescendant = NonExistentNode
	n.finalizedDescendant = n.root == s.finalizedCheckpoint.Root
	if parentIndex != NonExistentNode {
		n.finalizedDescendant = n.finalizedDescendant || s.nodes[parentIndex].finalizedDescendant
		// Descendants of an invalid payload are invalid.
		if s.nodes[parentIndex].status == forkchoicetypes.Invalid {
			n.status = forkchoicetypes.Invalid
		}
	}

	s.nodesIndices[n.root] = index
	s.nodes = append(s.nodes, n)

	// Update parent with the best child and descendant only if it's available.
	if n.parent != NonExistentNode {
		if err := s.updateBestChildAndDescendant(parentIndex, index); err != nil {
			return err
		}
	}

	// Update metrics.
	processedBlockCount.Inc()
	nodeCount.Set(float64(len(s.nodes)))

	return nil
}

// applyWeightChanges iterates backwards through the nodes in store twice. The
// first pass updates every weight with its delta and back propagates the delta
// to the parent. The second pass updates the best child and best descendant of
// every parent once all sibling weights are final.
func (s *Store) applyWeightChanges(ctx context.Context, delta []int64) error {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.applyWeightChanges")
	defer span.End()

	// The length of the nodes can not be different than length of the delta.
	if len(s.nodes) != len(delta) {
		return errors.Wrapf(forkchoice.ErrInvariantViolation,
			"delta length %d does not match node count %d", len(delta), len(s.nodes))
	}

	for i := len(s.nodes) - 1; i >= 0; i-- {
		n := s.nodes[i]

		nodeDelta := delta[i]
		if nodeDelta < 0 {
			// A node's weight can not be negative but the delta can be negative.
			d := uint64(-nodeDelta)
			if n.weight < d {
				return errors.Wrapf(forkchoice.ErrInvariantViolation,
					"node %#x weight %d would go below zero with delta %d", bytesutil.Trunc(n.root[:]), n.weight, nodeDelta)
			}
			n.weight -= d
		} else {
			n.weight += uint64(nodeDelta)
		}

		if n.parent == NonExistentNode {
			continue
		}
		// The parent always precedes its children in the array.
		if n.parent >= uint64(i) {
			return errors.Wrapf(forkchoice.ErrInvariantViolation,
				"node %d has parent index %d", i, n.parent)
		}
		delta[n.parent] += nodeDelta
	}

	// Children are visited before their parent so every best descendant is
	// settled by the time the parent is compared against its siblings.
	for i := len(s.nodes) - 1; i >= 0; i-- {
		n := s.nodes[i]
		if n.parent == NonExistentNode {
			continue
		}
		if err := s.updateBestChildAndDescendant(n.parent, uint64(i)); err != nil {
			return err
		}
	}

	return nil
}

// updateBestChildAndDescendant updates parent node's best child and descendent.
// It looks at input parent node and input child node and potentially modifies parent's best
// child and best descendent indices.
// There are four outcomes:
// 1.)  The child is already the best child but it's now invalid due to a FFG change and should be removed.
// 2.)  The child is already the best child and the parent is updated with the new best descendant.
// 3.)  The child is not the best child but becomes the best child.
// 4.)  The child is not the best child and does not become best child.
func (s *Store) updateBestChildAndDescendant(parentIndex, childIndex uint64) error {
	parent, err := s.nodeByIndex(parentIndex)
	if err != nil {
		return err
	}
	child, err := s.nodeByIndex(childIndex)
	if err != nil {
		return err
	}

	// Is the child viable to become head? Based on justification and finalization rules.
	childLeadsToViableHead, err := s.leadsToViableHead(child)
	if err != nil {
		return err
	}

	// Define 3 variables for the 3 outcomes mentioned above. This is to
	// set `parent.bestChild` and `parent.bestDescendant` to. These
	// aliases are to assist readability.
	changeToNone := []uint64{NonExistentNode, NonExistentNode}
	bestDescendant := child.bestDescendant
	if bestDescendant == NonExistentNode {
		bestDescendant = childIndex
	}
	changeToChild := []uint64{childIndex, bestDescendant}
	noChange := []uint64{parent.bestChild, parent.bestDescendant}
	var newParentChild []uint64

	if parent.bestChild != NonExistentNode {
		if parent.bestChild == childIndex && !childLeadsToViableHead {
			// If the child is already the best child of the parent but it's not viable for head,
			// we should remove it. (Outcome 1)
			newParentChild = changeToNone
		} else if parent.bestChild == childIndex {
			// If the child is already the best child of the parent, set it again to ensure the best
			// descendent of the parent is updated. (Outcome 2)
			newParentChild = changeToChild
		} else {
			bestChild, err := s.nodeByIndex(parent.bestChild)
			if err != nil {
				return err
			}

			// Is current parent's best child viable to be head? Based on justification and finalization rules.
			bestChildLeadsToViableHead, err := s.leadsToViableHead(bestChild)
			if err != nil {
				return err
			}

			switch {
			case childLeadsToViableHead && !bestChildLeadsToViableHead:
				// The child leads to a viable head, but the current parent's best child doesnt.
				newParentChild = changeToChild
			case !childLeadsToViableHead && bestChildLeadsToViableHead:
				// The child doesn't lead to a viable head, the current parent's best child does.
				newParentChild = noChange
			case child.weight == bestChild.weight:
				// If both are viable, compare their weights.
				// Tie-breaker of equal weights by root.
				if bytes.Compare(child.root[:], bestChild.root[:]) > 0 {
					newParentChild = changeToChild
				} else {
					newParentChild = noChange
				}
			case child.weight > bestChild.weight:
				// Choose winner by weight.
				newParentChild = changeToChild
			default:
				newParentChild = noChange
			}
		}
	} else {
		if childLeadsToViableHead {
			// If parent doesn't have a best child and the child is viable.
			newParentChild = changeToChild
		} else {
			// If parent doesn't have a best child and the child is not viable.
			newParentChild = noChange
		}
	}

	// Update parent with the outcome.
	parent.bestChild = newParentChild[0]
	parent.bestDescendant = newParentChild[1]

	return nil
}

// prune prunes the store with the new finalized root. The tree is only
// pruned if the finalized index is at or above the prune threshold. The
// finalized node and its descendants survive at the start of the array, every
// other node is removed and the surviving indices are rebased. The roots of
// removed nodes that are not ancestors of the finalized node are returned.
func (s *Store) prune(ctx context.Context, finalizedRoot [32]byte) ([][32]byte, error) {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.prune")
	defer span.End()

	// The node would have been pruned already when finalized root
	// is not in the store.
	finalizedIndex, ok := s.nodesIndices[finalizedRoot]
	if !ok {
		return nil, errUnknownFinalizedRoot
	}

	// Pruning only happens when the finalized index is at or above threshold.
	if finalizedIndex < s.pruneThreshold {
		return nil, nil
	}
	finalizedNode, err := s.nodeByIndex(finalizedIndex)
	if err != nil {
		return nil, err
	}

	ancestors := make(map[uint64]bool)
	for i := finalizedNode.parent; i != NonExistentNode; {
		n, err := s.nodeByIndex(i)
		if err != nil {
			return nil, err
		}
		ancestors[i] = true
		i = n.parent
	}

	// Map of old index to new index for every surviving node.
	rebase := make(map[uint64]uint64, uint64(len(s.nodes))-finalizedIndex)
	kept := make([]*Node, 0, uint64(len(s.nodes))-finalizedIndex)
	pruned := make([][32]byte, 0)
	for i, n := range s.nodes {
		idx := uint64(i)
		keep := idx == finalizedIndex
		if idx > finalizedIndex && n.parent != NonExistentNode {
			_, keep = rebase[n.parent]
		}
		if keep {
			rebase[idx] = uint64(len(kept))
			kept = append(kept, n)
			continue
		}
		delete(s.nodesIndices, n.root)
		delete(s.canonicalNodes, n.root)
		if s.prunedRoots != nil {
			s.prunedRoots.Add(n.root, idx)
		}
		if !ancestors[idx] {
			pruned = append(pruned, n.root)
		}
	}

	for i, n := range kept {
		if i == 0 {
			n.parent = NonExistentNode
		} else {
			n.parent = rebase[n.parent]
		}
		if n.bestChild != NonExistentNode {
			newIndex, ok := rebase[n.bestChild]
			if !ok {
				return nil, errors.Wrapf(forkchoice.ErrInvariantViolation,
					"best child %d of %#x did not survive pruning", n.bestChild, bytesutil.Trunc(n.root[:]))
			}
			n.bestChild = newIndex
		}
		if n.bestDescendant != NonExistentNode {
			newIndex, ok := rebase[n.bestDescendant]
			if !ok {
				return nil, errors.Wrapf(forkchoice.ErrInvariantViolation,
					"best descendant %d of %#x did not survive pruning", n.bestDescendant, bytesutil.Trunc(n.root[:]))
			}
			n.bestDescendant = newIndex
		}
		s.nodesIndices[n.root] = uint64(i)
	}

	prunedCount.Add(float64(len(s.nodes) - len(kept)))
	s.nodes = kept
	nodeCount.Set(float64(len(s.nodes)))

	log.WithFields(logrus.Fields{
		"finalizedRoot":  fmt.Sprintf("%#x", bytesutil.Trunc(finalizedRoot[:])),
		"remainingNodes": len(s.nodes),
		"prunedForks":    len(pruned),
	}).Debug("Pruned fork choice store")
	return pruned, nil
}

// ancestorRoot returns the root of the ancestor of root at or before slot.
func (s *Store) ancestorRoot(root [32]byte, slot types.Slot) ([32]byte, error) {
	i, ok := s.nodesIndices[root]
	if !ok {
		return [32]byte{}, errors.New("node does not exist")
	}
	if i >= uint64(len(s.nodes)) {
		return [32]byte{}, errors.New("node index out of range")
	}

	for s.nodes[i].slot > slot {
		i = s.nodes[i].parent
		if i == NonExistentNode {
			return [32]byte{}, errors.Wrapf(errNoAncestorAtSlot, "%d", slot)
		}
		if i >= uint64(len(s.nodes)) {
			return [32]byte{}, errors.New("node index out of range")
		}
	}

	return s.nodes[i].root, nil
}

// commonAncestorRoot walks both chains down the array until they meet. The
// higher index is always the one that moves since parents precede children.
func (s *Store) commonAncestorRoot(r1, r2 [32]byte) ([32]byte, types.Slot, error) {
	i1, ok := s.nodesIndices[r1]
	if !ok {
		return [32]byte{}, 0, errNilNode
	}
	i2, ok := s.nodesIndices[r2]
	if !ok {
		return [32]byte{}, 0, errNilNode
	}
	for i1 != i2 {
		var n *Node
		var err error
		if i1 > i2 {
			n, err = s.nodeByIndex(i1)
			if err != nil {
				return [32]byte{}, 0, err
			}
			i1 = n.parent
		} else {
			n, err = s.nodeByIndex(i2)
			if err != nil {
				return [32]byte{}, 0, err
			}
			i2 = n.parent
		}
		if i1 == NonExistentNode || i2 == NonExistentNode {
			return [32]byte{}, 0, forkchoice.ErrUnknownCommonAncestor
		}
	}
	n, err := s.nodeByIndex(i1)
	if err != nil {
		return [32]byte{}, 0, err
	}
	return n.root, n.slot, nil
}

// tips returns the roots and slots of all the leaves of the tree.
func (s *Store) tips() ([][32]byte, []types.Slot) {
	hasChildren := make([]bool, len(s.nodes))
	for _, n := range s.nodes {
		if n.parent != NonExistentNode && n.parent < uint64(len(s.nodes)) {
			hasChildren[n.parent] = true
		}
	}
	roots := make([][32]byte, 0)
	slots := make([]types.Slot, 0)
	for i, n := range s.nodes {
		if !hasChildren[i] {
			roots = append(roots, n.root)
			slots = append(slots, n.slot)
		}
	}
	return roots, slots
}
