package protoarray

import (
	"testing"

	"github.com/forkchoice/beacon/beacon-chain/forkchoice"
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/testing/assert"
	"github.com/forkchoice/beacon/testing/require"
	types "github.com/prysmaticlabs/eth2-types"
)

func TestNode_ViableForHead(t *testing.T) {
	tests := []struct {
		n              *Node
		justifiedEpoch types.Epoch
		finalizedEpoch types.Epoch
		initialEpoch   types.Epoch
		want           bool
	}{
		{&Node{}, 0, 0, 0, true},
		{&Node{status: forkchoicetypes.Invalid}, 0, 0, 0, false},
		{&Node{status: forkchoicetypes.Optimistic}, 0, 0, 0, true},
		{&Node{}, 1, 0, 0, true},
		{&Node{}, 3, 2, 2, true},
		{&Node{}, 3, 2, 1, false},
		{&Node{finalizedDescendant: true}, 3, 2, 1, true},
		{&Node{finalizedDescendant: true, status: forkchoicetypes.Invalid}, 3, 2, 1, false},
		{&Node{unrealizedJustifiedEpoch: 3, unrealizedFinalizedEpoch: 2}, 3, 2, 1, true},
		{&Node{unrealizedJustifiedEpoch: 3, unrealizedFinalizedEpoch: 1}, 3, 2, 1, false},
		{&Node{unrealizedJustifiedEpoch: 2, unrealizedFinalizedEpoch: 2}, 3, 2, 1, false},
		{&Node{justifiedEpoch: 3, finalizedEpoch: 2}, 3, 2, 1, false},
	}
	for _, tc := range tests {
		s := &Store{
			initialEpoch:        tc.initialEpoch,
			justifiedCheckpoint: &forkchoicetypes.Checkpoint{Epoch: tc.justifiedEpoch},
			finalizedCheckpoint: &forkchoicetypes.Checkpoint{Epoch: tc.finalizedEpoch},
		}
		assert.Equal(t, tc.want, s.viableForHead(tc.n))
	}
}

func TestNode_LeadsToViableHead(t *testing.T) {
	s := newTestStore([]*Node{
		testNode(indexToHash(0), NonExistentNode),
		testNode(indexToHash(1), 0),
		testNode(indexToHash(2), 0),
		testNode(indexToHash(3), 1),
		testNode(indexToHash(4), 2),
	})
	s.initialEpoch = 0
	s.justifiedCheckpoint.Epoch = 4
	s.finalizedCheckpoint.Epoch = 3
	for _, n := range s.nodes {
		n.unrealizedJustifiedEpoch = 4
		n.unrealizedFinalizedEpoch = 3
	}
	s.nodes[1].bestChild = 3
	s.nodes[1].bestDescendant = 3
	s.nodes[2].bestChild = 4
	s.nodes[2].bestDescendant = 4
	s.nodes[3].unrealizedFinalizedEpoch = 2
	s.nodes[4].status = forkchoicetypes.Invalid

	viable, err := s.leadsToViableHead(s.nodes[0])
	require.NoError(t, err)
	assert.Equal(t, true, viable, "Leaf without descendant is viable on its own")

	viable, err = s.leadsToViableHead(s.nodes[1])
	require.NoError(t, err)
	assert.Equal(t, true, viable, "Viable node with non viable descendant")

	viable, err = s.leadsToViableHead(s.nodes[3])
	require.NoError(t, err)
	assert.Equal(t, false, viable, "Node with mismatching unrealized finalization")

	viable, err = s.leadsToViableHead(s.nodes[4])
	require.NoError(t, err)
	assert.Equal(t, false, viable, "Invalid node")

	s.nodes[2].bestDescendant = 10
	_, err = s.leadsToViableHead(s.nodes[2])
	require.ErrorIs(t, err, forkchoice.ErrInvariantViolation)
}

// This test starts with the following branching diagram
//
// 0 -- 1 -- 2
//  \
//   3
//
// and finalizes 1.
func TestStore_UpdateFinalizedDescendants(t *testing.T) {
	s := newTestStore([]*Node{
		testNode(indexToHash(0), NonExistentNode),
		testNode(indexToHash(1), 0),
		testNode(indexToHash(2), 1),
		testNode(indexToHash(3), 0),
	})
	for _, n := range s.nodes {
		n.finalizedDescendant = true
	}
	s.finalizedCheckpoint.Root = indexToHash(1)

	require.NoError(t, s.updateFinalizedDescendants())
	want := []bool{false, true, true, false}
	for i, n := range s.nodes {
		assert.Equal(t, want[i], n.finalizedDescendant, "Wrong finalized descendant flag for node %d", i)
	}

	s.nodes[2].parent = 3
	require.ErrorIs(t, s.updateFinalizedDescendants(), forkchoice.ErrInvariantViolation)
}
