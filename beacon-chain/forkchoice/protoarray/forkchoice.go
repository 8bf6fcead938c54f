package protoarray

import (
	"context"
	"fmt"

	"github.com/forkchoice/beacon/beacon-chain/forkchoice"
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	fieldparams "github.com/forkchoice/beacon/config/fieldparams"
	"github.com/forkchoice/beacon/config/params"
	"github.com/forkchoice/beacon/encoding/bytesutil"
	"github.com/forkchoice/beacon/time/slots"
	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

var _ forkchoice.ForkChoicer = (*ForkChoice)(nil)

// Head returns the head root from fork choice store.
// It firsts computes validator's balance changes then recalculates block tree from leaves to root.
func (f *ForkChoice) Head(ctx context.Context) ([32]byte, error) {
	ctx, span := trace.StartSpan(ctx, "protoArrayForkChoice.Head")
	defer span.End()
	f.lock.Lock()
	defer f.lock.Unlock()
	calledHeadCount.Inc()

	switch f.status {
	case poisoned:
		return [32]byte{}, errors.Wrapf(forkchoice.ErrResyncRequired, "%v", f.fatalErr)
	case uninitialized:
		return [32]byte{}, forkchoice.ErrNotInitialized
	}

	deltas, err := computeDeltas(ctx, len(f.store.nodes), f.store.nodesIndices, f.votes, f.slashedIndices)
	if err != nil {
		return [32]byte{}, f.poison(errors.Wrap(err, "could not compute deltas"))
	}

	if err := f.store.applyWeightChanges(ctx, deltas); err != nil {
		return [32]byte{}, f.poison(errors.Wrap(err, "could not apply score changes"))
	}

	root, err := f.store.head(ctx)
	if err != nil {
		if forkchoice.IsFatal(err) {
			return [32]byte{}, f.poison(err)
		}
		return [32]byte{}, err
	}
	return root, nil
}

// poison moves the store to its terminal state. Every later head request
// fails until the store is rebuilt from persisted state.
func (f *ForkChoice) poison(err error) error {
	if f.status != poisoned {
		poisonedCount.Inc()
		log.WithError(err).Error("Fork choice store poisoned, resync required")
	}
	f.status = poisoned
	f.fatalErr = err
	return err
}

// Poisoned returns the error that poisoned the store, nil if the store can be trusted.
func (f *ForkChoice) Poisoned() error {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.status != poisoned {
		return nil
	}
	return f.fatalErr
}

// ProcessAttestation processes attestation for vote accounting, it iterates around validator indices
// and update their votes accordingly. Weights are only propagated by the next head call.
func (f *ForkChoice) ProcessAttestation(ctx context.Context, validatorIndex types.ValidatorIndex, blockRoot [32]byte, targetEpoch types.Epoch, effectiveBalance uint64) {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.ProcessAttestation")
	defer span.End()
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.slashedIndices[validatorIndex] {
		return
	}

	// Validator indices will grow the vote cache.
	if uint64(validatorIndex) >= uint64(len(f.votes)) {
		newVotes := make([]Vote, uint64(validatorIndex)+1)
		copy(newVotes, f.votes)
		f.votes = newVotes
	}

	// Newly allocated vote if the root fields are untouched.
	vote := &f.votes[validatorIndex]
	newVote := vote.nextRoot == params.BeaconConfig().ZeroHash && vote.currentRoot == params.BeaconConfig().ZeroHash

	// Vote gets updated if it's newly allocated or high target epoch.
	if newVote || targetEpoch > vote.nextEpoch {
		vote.nextEpoch = targetEpoch
		vote.nextRoot = blockRoot
		vote.nextBalance = effectiveBalance
	}

	processedAttestationCount.Inc()
}

// UpdateBalances sets the balance each validator's vote weighs with from the
// next head call on. Balances are indexed by validator index.
func (f *ForkChoice) UpdateBalances(ctx context.Context, balances []uint64) {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.UpdateBalances")
	defer span.End()
	f.lock.Lock()
	defer f.lock.Unlock()

	for i := range f.votes {
		if i >= len(balances) {
			break
		}
		f.votes[i].nextBalance = balances[i]
	}
}

// InsertSlashedIndex adds the given slashed validator index to the
// store-tracked list. Votes from these validators are not accounted for
// in forkchoice.
func (f *ForkChoice) InsertSlashedIndex(ctx context.Context, index types.ValidatorIndex) {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.InsertSlashedIndex")
	defer span.End()
	f.lock.Lock()
	defer f.lock.Unlock()
	f.slashedIndices[index] = true
}

// IsSlashed returns true if the validator's votes are no longer accounted for.
func (f *ForkChoice) IsSlashed(index types.ValidatorIndex) bool {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.slashedIndices[index]
}

// ProcessBlock processes a new block by inserting it to the fork choice store.
func (f *ForkChoice) ProcessBlock(ctx context.Context, b *forkchoicetypes.BlockAndCheckpoints) error {
	ctx, span := trace.StartSpan(ctx, "protoArrayForkChoice.ProcessBlock")
	defer span.End()

	if b == nil || b.Block == nil {
		return errNilBlock
	}
	if b.JustifiedCheckpoint == nil || b.FinalizedCheckpoint == nil {
		return errors.Wrap(forkchoice.ErrNilCheckpoint, "block checkpoints are required")
	}
	uj := b.UnrealizedJustifiedCheckpoint
	if uj == nil {
		uj = b.JustifiedCheckpoint
	}
	uf := b.UnrealizedFinalizedCheckpoint
	if uf == nil {
		uf = b.FinalizedCheckpoint
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	if f.status == poisoned {
		return errors.Wrapf(forkchoice.ErrResyncRequired, "%v", f.fatalErr)
	}

	blk := b.Block
	n := &Node{
		slot:                     blk.Slot,
		root:                     blk.Root,
		stateRoot:                blk.StateRoot,
		targetRoot:               blk.TargetRoot,
		justifiedEpoch:           b.JustifiedCheckpoint.Epoch,
		finalizedEpoch:           b.FinalizedCheckpoint.Epoch,
		unrealizedJustifiedEpoch: uj.Epoch,
		unrealizedFinalizedEpoch: uf.Epoch,
		status:                   blk.PayloadStatus,
	}
	if err := f.store.insert(ctx, blk.ParentRoot, n); err != nil {
		if forkchoice.IsFatal(err) {
			return f.poison(err)
		}
		return err
	}
	f.status = active
	if n.status == forkchoicetypes.Invalid && blk.PayloadStatus != forkchoicetypes.Invalid {
		f.invalidatedRoots = append(f.invalidatedRoots, n.root)
		invalidatedCount.Inc()
		log.WithField("root", fmt.Sprintf("%#x", bytesutil.Trunc(n.root[:]))).Warn("Block descends from an invalid payload")
	}

	s := f.store
	if b.JustifiedCheckpoint.Epoch > s.bestJustifiedCheckpoint.Epoch {
		s.bestJustifiedCheckpoint = b.JustifiedCheckpoint.Copy()
	}
	if uj.Epoch > s.unrealizedJustifiedCheckpoint.Epoch {
		s.unrealizedJustifiedCheckpoint = uj.Copy()
	}
	if uf.Epoch > s.unrealizedFinalizedCheckpoint.Epoch {
		s.unrealizedFinalizedCheckpoint = uf.Copy()
	}
	return nil
}

// NewSlot runs the checkpoint promotions that happen at the start of an
// epoch. The best justified checkpoint seen in blocks replaces the justified
// checkpoint if it descends from the finalized block, and the unrealized
// justification of the previous epoch becomes realized.
func (f *ForkChoice) NewSlot(ctx context.Context, slot types.Slot) error {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.NewSlot")
	defer span.End()

	if !slots.IsEpochStart(slot) {
		return nil
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	s := f.store

	if bj := s.bestJustifiedCheckpoint; bj.Epoch > s.justifiedCheckpoint.Epoch {
		finalizedSlot, err := slots.EpochStart(s.finalizedCheckpoint.Epoch)
		if err != nil {
			return err
		}
		r, err := s.ancestorRoot(bj.Root, finalizedSlot)
		if err == nil && r == s.finalizedCheckpoint.Root {
			s.setJustified(bj)
		}
	}

	if uj := s.unrealizedJustifiedCheckpoint; uj.Epoch > s.justifiedCheckpoint.Epoch {
		if _, ok := s.nodesIndices[uj.Root]; ok {
			s.setJustified(uj)
		}
	}

	// Blocks from previous epochs realize their unrealized checkpoints.
	epoch := slots.ToEpoch(slot)
	for _, n := range s.nodes {
		if slots.ToEpoch(n.slot) < epoch {
			n.justifiedEpoch = n.unrealizedJustifiedEpoch
			n.finalizedEpoch = n.unrealizedFinalizedEpoch
		}
	}
	return nil
}

func (s *Store) setJustified(cp *forkchoicetypes.Checkpoint) {
	log.WithFields(logrus.Fields{
		"oldEpoch": s.justifiedCheckpoint.Epoch,
		"newEpoch": cp.Epoch,
		"root":     fmt.Sprintf("%#x", bytesutil.Trunc(cp.Root[:])),
	}).Debug("Updated justified checkpoint")
	s.prevJustifiedCheckpoint = s.justifiedCheckpoint
	s.justifiedCheckpoint = cp.Copy()
	if cp.Epoch > s.bestJustifiedCheckpoint.Epoch {
		s.bestJustifiedCheckpoint = cp.Copy()
	}
}

// UpdateJustifiedCheckpoint sets the justified checkpoint to the given one.
// Checkpoints with a lower epoch than the current one are ignored.
func (f *ForkChoice) UpdateJustifiedCheckpoint(ctx context.Context, jc *forkchoicetypes.Checkpoint) error {
	_, span := trace.StartSpan(ctx, "protoArrayForkChoice.UpdateJustifiedCheckpoint")
	defer span.End()
	if jc == nil {
		return forkchoice.ErrNilCheckpoint
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	s := f.store

	if jc.Epoch <= s.justifiedCheckpoint.Epoch {
		if jc.Epoch < s.justifiedCheckpoint.Epoch {
			log.WithFields(logrus.Fields{
				"currentEpoch":  s.justifiedCheckpoint.Epoch,
				"receivedEpoch": jc.Epoch,
			}).Warn("Ignoring justified checkpoint regression")
		}
		return nil
	}
	if _, ok := s.nodesIndices[jc.Root]; !ok {
		return errors.Wrapf(errUnknownJustifiedRoot, "%#x", jc.Root)
	}
	s.setJustified(jc)
	return nil
}

// UpdateFinalizedCheckpoint sets the finalized checkpoint to the given one
// and prunes the store. It returns the pruned roots that were not ancestors of
// the finalized block. Checkpoints with a lower epoch than the current one are
// ignored.
func (f *ForkChoice) UpdateFinalizedCheckpoint(ctx context.Context, fc *forkchoicetypes.Checkpoint) ([][32]byte, error) {
	ctx, span := trace.StartSpan(ctx, "protoArrayForkChoice.UpdateFinalizedCheckpoint")
	defer span.End()
	if fc == nil {
		return nil, forkchoice.ErrNilCheckpoint
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	s := f.store

	if f.status == poisoned {
		return nil, errors.Wrapf(forkchoice.ErrResyncRequired, "%v", f.fatalErr)
	}
	if fc.Epoch <= s.finalizedCheckpoint.Epoch {
		if fc.Epoch < s.finalizedCheckpoint.Epoch {
			log.WithFields(logrus.Fields{
				"currentEpoch":  s.finalizedCheckpoint.Epoch,
				"receivedEpoch": fc.Epoch,
			}).Warn("Ignoring finalized checkpoint regression")
		}
		return nil, nil
	}
	if _, ok := s.nodesIndices[fc.Root]; !ok {
		return nil, errors.Wrapf(errUnknownFinalizedRoot, "%#x", fc.Root)
	}

	s.finalizedCheckpoint = fc.Copy()
	if s.justifiedCheckpoint.Epoch < fc.Epoch {
		s.setJustified(fc)
	}
	if err := s.updateFinalizedDescendants(); err != nil {
		return nil, f.poison(err)
	}
	pruned, err := s.prune(ctx, fc.Root)
	if err != nil {
		if forkchoice.IsFatal(err) {
			return nil, f.poison(err)
		}
		return nil, err
	}
	f.prunedRoots = append(f.prunedRoots, pruned...)
	return pruned, nil
}

// SetOptimisticToValid sets the node with the given root as a fully validated node.
func (f *ForkChoice) SetOptimisticToValid(ctx context.Context, root [fieldparams.RootLength]byte) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.status == poisoned {
		return errors.Wrapf(forkchoice.ErrResyncRequired, "%v", f.fatalErr)
	}
	return f.store.setOptimisticToValid(ctx, root)
}

// SetOptimisticToInvalid marks the node with the given root and all of its
// descendants as invalid. It returns the invalidated roots.
func (f *ForkChoice) SetOptimisticToInvalid(ctx context.Context, root [fieldparams.RootLength]byte) ([][32]byte, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.status == poisoned {
		return nil, errors.Wrapf(forkchoice.ErrResyncRequired, "%v", f.fatalErr)
	}
	invalidRoots, err := f.store.setOptimisticToInvalid(ctx, root)
	if err != nil {
		return nil, err
	}
	f.invalidatedRoots = append(f.invalidatedRoots, invalidRoots...)
	return invalidRoots, nil
}

// ProcessPayloadStatus applies an execution layer verdict on the payload of
// the given block. Only VALID and INVALID verdicts are accepted.
func (f *ForkChoice) ProcessPayloadStatus(ctx context.Context, root [fieldparams.RootLength]byte, status forkchoicetypes.PayloadStatus) ([][32]byte, error) {
	switch status {
	case forkchoicetypes.Valid:
		return nil, f.SetOptimisticToValid(ctx, root)
	case forkchoicetypes.Invalid:
		return f.SetOptimisticToInvalid(ctx, root)
	default:
		return nil, errors.Wrapf(errInvalidOptimisticStatus, "unexpected payload verdict %s", status)
	}
}

// PrunedRoots returns the non canonical roots pruned since the last call.
func (f *ForkChoice) PrunedRoots() [][32]byte {
	f.lock.Lock()
	defer f.lock.Unlock()
	roots := f.prunedRoots
	f.prunedRoots = nil
	return roots
}

// InvalidatedRoots returns the roots invalidated since the last call.
func (f *ForkChoice) InvalidatedRoots() [][32]byte {
	f.lock.Lock()
	defer f.lock.Unlock()
	roots := f.invalidatedRoots
	f.invalidatedRoots = nil
	return roots
}

// HasNode returns true if the node exists in fork choice store,
// false else wise.
func (f *ForkChoice) HasNode(root [32]byte) bool {
	f.lock.RLock()
	defer f.lock.RUnlock()

	_, ok := f.store.nodesIndices[root]
	return ok
}

// HasParent returns true if the node parent exists in fork choice store,
// false else wise.
func (f *ForkChoice) HasParent(root [32]byte) bool {
	f.lock.RLock()
	defer f.lock.RUnlock()

	i, ok := f.store.nodesIndices[root]
	if !ok || i >= uint64(len(f.store.nodes)) {
		return false
	}

	return f.store.nodes[i].parent != NonExistentNode
}

// IsCanonical returns true if the given root is part of the canonical chain.
func (f *ForkChoice) IsCanonical(root [32]byte) bool {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.store.canonicalNodes[root]
}

// IsOptimistic returns true if the block with the given root was not verified
// by the execution layer yet.
func (f *ForkChoice) IsOptimistic(root [32]byte) (bool, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.store.isOptimistic(root)
}

// AncestorRoot returns the ancestor root of input block root at a given slot.
func (f *ForkChoice) AncestorRoot(ctx context.Context, root [32]byte, slot types.Slot) ([32]byte, error) {
	_, span := trace.StartSpan(ctx, "protoArray.AncestorRoot")
	defer span.End()

	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.store.ancestorRoot(root, slot)
}

// CommonAncestorRoot returns the common ancestor root and slot between the two block roots r1 and r2.
func (f *ForkChoice) CommonAncestorRoot(ctx context.Context, r1 [32]byte, r2 [32]byte) ([32]byte, types.Slot, error) {
	_, span := trace.StartSpan(ctx, "protoArray.CommonAncestorRoot")
	defer span.End()

	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.store.commonAncestorRoot(r1, r2)
}

// Weight returns the weight of the given root if found on the store.
func (f *ForkChoice) Weight(root [32]byte) (uint64, error) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	index, ok := f.store.nodesIndices[root]
	if !ok {
		return 0, errNilNode
	}
	n, err := f.store.nodeByIndex(index)
	if err != nil {
		return 0, err
	}
	return n.weight, nil
}

// NodeCount returns the current number of nodes in the Store.
func (f *ForkChoice) NodeCount() int {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return len(f.store.nodes)
}

// Tips returns all possible chain heads (leaves of fork choice tree).
// Heads roots and heads slots are returned.
func (f *ForkChoice) Tips() ([][32]byte, []types.Slot) {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.store.tips()
}

// CachedHeadRoot returns the last cached head root.
func (f *ForkChoice) CachedHeadRoot() [32]byte {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return f.store.headRoot
}

// JustifiedCheckpoint of fork choice store.
func (f *ForkChoice) JustifiedCheckpoint() *forkchoicetypes.Checkpoint {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.store.justifiedCheckpoint.Copy()
}

// PreviousJustifiedCheckpoint of fork choice store.
func (f *ForkChoice) PreviousJustifiedCheckpoint() *forkchoicetypes.Checkpoint {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.store.prevJustifiedCheckpoint.Copy()
}

// BestJustifiedCheckpoint of fork choice store.
func (f *ForkChoice) BestJustifiedCheckpoint() *forkchoicetypes.Checkpoint {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.store.bestJustifiedCheckpoint.Copy()
}

// UnrealizedJustifiedCheckpoint of fork choice store.
func (f *ForkChoice) UnrealizedJustifiedCheckpoint() *forkchoicetypes.Checkpoint {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.store.unrealizedJustifiedCheckpoint.Copy()
}

// FinalizedCheckpoint of fork choice store.
func (f *ForkChoice) FinalizedCheckpoint() *forkchoicetypes.Checkpoint {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.store.finalizedCheckpoint.Copy()
}

// Votes returns the latest message of every validator that voted, keyed by
// validator index.
func (f *ForkChoice) Votes() map[types.ValidatorIndex]*forkchoicetypes.LatestMessage {
	f.lock.RLock()
	defer f.lock.RUnlock()

	msgs := make(map[types.ValidatorIndex]*forkchoicetypes.LatestMessage)
	for i, v := range f.votes {
		if v.nextRoot == params.BeaconConfig().ZeroHash {
			continue
		}
		msgs[types.ValidatorIndex(i)] = &forkchoicetypes.LatestMessage{
			Root:    v.nextRoot,
			Epoch:   v.nextEpoch,
			Balance: v.nextBalance,
		}
	}
	return msgs
}

// SetVotes restores latest messages, typically read back from the database
// after a restart. Restored votes are pending and count from the next head call.
func (f *ForkChoice) SetVotes(msgs map[types.ValidatorIndex]*forkchoicetypes.LatestMessage) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for idx, msg := range msgs {
		if msg == nil {
			continue
		}
		if uint64(idx) >= uint64(len(f.votes)) {
			newVotes := make([]Vote, uint64(idx)+1)
			copy(newVotes, f.votes)
			f.votes = newVotes
		}
		vote := &f.votes[idx]
		if vote.nextRoot != params.BeaconConfig().ZeroHash && msg.Epoch <= vote.nextEpoch {
			continue
		}
		vote.nextRoot = msg.Root
		vote.nextEpoch = msg.Epoch
		vote.nextBalance = msg.Balance
	}
}

// Nodes returns a snapshot of the node array in index order.
func (f *ForkChoice) Nodes() []*forkchoicetypes.Node {
	f.lock.RLock()
	defer f.lock.RUnlock()

	nodes := make([]*forkchoicetypes.Node, len(f.store.nodes))
	for i, n := range f.store.nodes {
		nodes[i] = &forkchoicetypes.Node{
			Slot:           n.slot,
			Root:           n.root,
			Parent:         n.parent,
			BestDescendant: n.bestDescendant,
			Weight:         n.weight,
			Status:         n.status,
		}
	}
	return nodes
}
