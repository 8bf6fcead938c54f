// Package replay feeds recorded fork choice inputs, read from a YAML
// scenario, into the blockchain service and verifies the expected results.
package replay

import (
	"context"
	"io"
	"os"

	"github.com/forkchoice/beacon/beacon-chain/forkchoice"
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/runtime/logging"
	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
	"gopkg.in/yaml.v2"
)

var log = logrus.WithField("prefix", "replay")

var (
	errCheckFailed     = errors.New("check failed")
	errUnexpectedValid = errors.New("step expected to fail succeeded")
	errEmptyStep       = errors.New("step has no input")
)

// Chain is the part of the blockchain service driven by a scenario.
type Chain interface {
	ReceiveBlock(ctx context.Context, b *forkchoicetypes.BlockAndCheckpoints) error
	ReceiveAttestation(ctx context.Context, blockRoot [32]byte, targetEpoch types.Epoch, indices []types.ValidatorIndex, balances []uint64) error
	ReceiveAttesterSlashing(ctx context.Context, indices []types.ValidatorIndex) error
	ReceivePayloadStatus(ctx context.Context, root [32]byte, status forkchoicetypes.PayloadStatus) error
	UpdateBalances(ctx context.Context, balances []uint64) error
	UpdateJustifiedCheckpoint(ctx context.Context, cp *forkchoicetypes.Checkpoint) error
	UpdateFinalizedCheckpoint(ctx context.Context, cp *forkchoicetypes.Checkpoint) error
	ProcessSlot(ctx context.Context, slot types.Slot) error
	ForkChoicer() forkchoice.ForkChoicer
	HeadRoot() [32]byte
	HeadSlot() types.Slot
	JustifiedCheckpoint() *forkchoicetypes.Checkpoint
	FinalizedCheckpoint() *forkchoicetypes.Checkpoint
}

// Decode reads a scenario from r.
func Decode(r io.Reader) (*Scenario, error) {
	s := &Scenario{}
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	if err := dec.Decode(s); err != nil {
		return nil, errors.Wrap(err, "could not decode scenario")
	}
	return s, nil
}

// LoadFile reads the scenario stored at path.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, errors.Wrap(err, "could not open scenario file")
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Error("Could not close scenario file")
		}
	}()
	return Decode(f)
}

// Replayer applies the steps of a scenario to a chain, in order.
type Replayer struct {
	chain          Chain
	defaultBalance uint64
	balances       []uint64
}

// NewReplayer returns a replayer driving chain.
func NewReplayer(chain Chain) *Replayer {
	return &Replayer{chain: chain}
}

// Run applies every step of the scenario. It stops at the first step that
// fails or whose outcome differs from the expected one.
func (r *Replayer) Run(ctx context.Context, s *Scenario) error {
	ctx, span := trace.StartSpan(ctx, "replay.Run")
	defer span.End()

	r.defaultBalance = s.DefaultBalance
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runStep(ctx, step); err != nil {
			return errors.Wrapf(err, "step %d", i)
		}
	}
	log.WithField("steps", len(s.Steps)).Info("Replayed scenario")
	return nil
}

func (r *Replayer) runStep(ctx context.Context, step *Step) error {
	if step == nil {
		return errEmptyStep
	}
	if step.Check != nil {
		return r.check(step.Check)
	}
	err := r.apply(ctx, step)
	if step.Valid == nil || *step.Valid {
		return err
	}
	if err == nil {
		return errUnexpectedValid
	}
	log.WithError(err).Debug("Step failed as expected")
	return nil
}

func (r *Replayer) apply(ctx context.Context, step *Step) error {
	switch {
	case step.Block != nil:
		b, err := step.Block.toForkChoice()
		if err != nil {
			return err
		}
		log.WithFields(logging.BlockFields(b)).Debug("Replaying block")
		return r.chain.ReceiveBlock(ctx, b)
	case step.Attestation != nil:
		return r.attestation(ctx, step.Attestation)
	case step.PayloadStatus != nil:
		root, err := decodeRoot(step.PayloadStatus.Root)
		if err != nil {
			return err
		}
		status, err := forkchoicetypes.PayloadStatusFromString(step.PayloadStatus.Status)
		if err != nil {
			return err
		}
		return r.chain.ReceivePayloadStatus(ctx, root, status)
	case step.Slashing != nil:
		return r.chain.ReceiveAttesterSlashing(ctx, step.Slashing.Indices)
	case step.Balances != nil:
		r.balances = append(r.balances[:0], step.Balances...)
		return r.chain.UpdateBalances(ctx, step.Balances)
	case step.Tick != nil:
		return r.chain.ProcessSlot(ctx, *step.Tick)
	case step.Justified != nil:
		cp, err := step.Justified.toForkChoice()
		if err != nil {
			return err
		}
		return r.chain.UpdateJustifiedCheckpoint(ctx, cp)
	case step.Finalized != nil:
		cp, err := step.Finalized.toForkChoice()
		if err != nil {
			return err
		}
		return r.chain.UpdateFinalizedCheckpoint(ctx, cp)
	default:
		return errEmptyStep
	}
}

func (r *Replayer) attestation(ctx context.Context, a *Attestation) error {
	root, err := decodeRoot(a.BlockRoot)
	if err != nil {
		return err
	}
	bits, err := decodeBitlist(a.AggregationBits)
	if err != nil {
		return err
	}
	if bits.Len() != uint64(len(a.Committee)) {
		return errors.Errorf("aggregation bits length %d does not match committee size %d", bits.Len(), len(a.Committee))
	}
	indices := AttestingIndices(bits, a.Committee)
	balances := make([]uint64, len(indices))
	for i, idx := range indices {
		balances[i] = r.balance(idx)
	}
	return r.chain.ReceiveAttestation(ctx, root, a.TargetEpoch, indices, balances)
}

// balance returns the last known balance of a validator.
func (r *Replayer) balance(idx types.ValidatorIndex) uint64 {
	if uint64(idx) < uint64(len(r.balances)) {
		return r.balances[idx]
	}
	return r.defaultBalance
}

// AttestingIndices returns the committee members selected by bf.
func AttestingIndices(bf bitfield.Bitfield, committee []types.ValidatorIndex) []types.ValidatorIndex {
	indices := make([]types.ValidatorIndex, 0, len(committee))
	for _, idx := range bf.BitIndices() {
		if idx < len(committee) {
			indices = append(indices, committee[idx])
		}
	}
	return indices
}

func (r *Replayer) check(c *Check) error {
	if c.Head != nil {
		want, err := decodeRoot(c.Head.Root)
		if err != nil {
			return err
		}
		if got := r.chain.HeadRoot(); got != want {
			return errors.Wrapf(errCheckFailed, "head root %#x, want %#x", got, want)
		}
		if got := r.chain.HeadSlot(); got != c.Head.Slot {
			return errors.Wrapf(errCheckFailed, "head slot %d, want %d", got, c.Head.Slot)
		}
	}
	if err := checkCheckpoint("justified", r.chain.JustifiedCheckpoint(), c.JustifiedCheckpoint); err != nil {
		return err
	}
	if err := checkCheckpoint("finalized", r.chain.FinalizedCheckpoint(), c.FinalizedCheckpoint); err != nil {
		return err
	}
	if c.NodeCount != nil {
		fc := r.chain.ForkChoicer()
		if fc == nil {
			return errors.Wrap(errCheckFailed, "fork choice is not initialized")
		}
		if got := fc.NodeCount(); got != *c.NodeCount {
			return errors.Wrapf(errCheckFailed, "node count %d, want %d", got, *c.NodeCount)
		}
	}
	return nil
}

func checkCheckpoint(name string, got *forkchoicetypes.Checkpoint, want *Checkpoint) error {
	if want == nil {
		return nil
	}
	cp, err := want.toForkChoice()
	if err != nil {
		return err
	}
	if got.Epoch != cp.Epoch || got.Root != cp.Root {
		return errors.Wrapf(errCheckFailed, "%s checkpoint (%d, %#x), want (%d, %#x)", name, got.Epoch, got.Root, cp.Epoch, cp.Root)
	}
	return nil
}
