package protoarray

import (
	"context"
	"fmt"

	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/encoding/bytesutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// isOptimistic returns true if the payload of the block was not verified yet.
func (s *Store) isOptimistic(root [32]byte) (bool, error) {
	index, ok := s.nodesIndices[root]
	if !ok {
		return false, errNilNode
	}
	n, err := s.nodeByIndex(index)
	if err != nil {
		return false, err
	}
	return n.status == forkchoicetypes.Optimistic, nil
}

// setOptimisticToValid marks the payload of the block as valid. Ancestors are
// left untouched.
func (s *Store) setOptimisticToValid(ctx context.Context, root [32]byte) error {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.setOptimisticToValid")
	defer span.End()

	index, ok := s.nodesIndices[root]
	if !ok {
		return errNilNode
	}
	n, err := s.nodeByIndex(index)
	if err != nil {
		return err
	}
	switch n.status {
	case forkchoicetypes.Valid:
		return nil
	case forkchoicetypes.Optimistic:
		n.status = forkchoicetypes.Valid
		return nil
	default:
		return errors.Wrapf(errInvalidOptimisticStatus, "cannot mark %s block %#x as valid", n.status, bytesutil.Trunc(root[:]))
	}
}

// setOptimisticToInvalid marks the block and every one of its descendants as
// invalid and returns their roots. Descendants always sit at higher indices
// so one forward pass from the block finds all of them.
func (s *Store) setOptimisticToInvalid(ctx context.Context, root [32]byte) ([][32]byte, error) {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.setOptimisticToInvalid")
	defer span.End()

	index, ok := s.nodesIndices[root]
	if !ok {
		return nil, errNilNode
	}
	n, err := s.nodeByIndex(index)
	if err != nil {
		return nil, err
	}
	switch n.status {
	case forkchoicetypes.Invalid:
		return nil, nil
	case forkchoicetypes.Optimistic:
	default:
		return nil, errors.Wrapf(errInvalidOptimisticStatus, "cannot mark %s block %#x as invalid", n.status, bytesutil.Trunc(root[:]))
	}

	invalid := make([]bool, len(s.nodes))
	invalid[index] = true
	n.status = forkchoicetypes.Invalid
	invalidRoots := [][32]byte{root}
	for i := index + 1; i < uint64(len(s.nodes)); i++ {
		child := s.nodes[i]
		if child.parent == NonExistentNode || child.parent >= i || !invalid[child.parent] {
			continue
		}
		invalid[i] = true
		child.status = forkchoicetypes.Invalid
		invalidRoots = append(invalidRoots, child.root)
	}

	invalidatedCount.Add(float64(len(invalidRoots)))
	log.WithFields(logrus.Fields{
		"root":        fmt.Sprintf("%#x", bytesutil.Trunc(root[:])),
		"invalidated": len(invalidRoots),
	}).Warn("Marked block and descendants with invalid execution payload")
	return invalidRoots, nil
}
