package replay

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	fieldparams "github.com/forkchoice/beacon/config/fieldparams"
	"github.com/forkchoice/beacon/encoding/bytesutil"
	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
)

// Scenario is a recorded sequence of fork choice inputs.
type Scenario struct {
	// DefaultBalance is the effective balance of validators without an
	// explicit balance.
	DefaultBalance uint64  `yaml:"default_balance"`
	Steps          []*Step `yaml:"steps"`
}

// Step holds exactly one input or check.
type Step struct {
	Block         *Block         `yaml:"block,omitempty"`
	Attestation   *Attestation   `yaml:"attestation,omitempty"`
	PayloadStatus *PayloadStatus `yaml:"payload_status,omitempty"`
	Slashing      *Slashing      `yaml:"attester_slashing,omitempty"`
	Balances      []uint64       `yaml:"balances,omitempty"`
	Tick          *types.Slot    `yaml:"tick,omitempty"`
	Finalized     *Checkpoint    `yaml:"finalized_checkpoint,omitempty"`
	Justified     *Checkpoint    `yaml:"justified_checkpoint,omitempty"`
	Check         *Check         `yaml:"check,omitempty"`
	Valid         *bool          `yaml:"valid,omitempty"`
}

// Checkpoint is an epoch and a hex encoded block root.
type Checkpoint struct {
	Epoch types.Epoch `yaml:"epoch"`
	Root  string      `yaml:"root"`
}

// Block is a block and the checkpoints of its post state.
type Block struct {
	Slot                          types.Slot  `yaml:"slot"`
	Root                          string      `yaml:"root"`
	ParentRoot                    string      `yaml:"parent_root"`
	StateRoot                     string      `yaml:"state_root,omitempty"`
	TargetRoot                    string      `yaml:"target_root,omitempty"`
	PayloadStatus                 string      `yaml:"payload_status,omitempty"`
	JustifiedCheckpoint           *Checkpoint `yaml:"justified_checkpoint"`
	FinalizedCheckpoint           *Checkpoint `yaml:"finalized_checkpoint"`
	UnrealizedJustifiedCheckpoint *Checkpoint `yaml:"unrealized_justified_checkpoint,omitempty"`
	UnrealizedFinalizedCheckpoint *Checkpoint `yaml:"unrealized_finalized_checkpoint,omitempty"`
}

// Attestation is an aggregate vote of a committee. AggregationBits is the hex
// encoded SSZ bitlist selecting the attesting committee members.
type Attestation struct {
	BlockRoot       string                 `yaml:"block_root"`
	TargetEpoch     types.Epoch            `yaml:"target_epoch"`
	AggregationBits string                 `yaml:"aggregation_bits"`
	Committee       []types.ValidatorIndex `yaml:"committee"`
}

// PayloadStatus is an execution engine verdict.
type PayloadStatus struct {
	Root   string `yaml:"root"`
	Status string `yaml:"status"`
}

// Slashing lists equivocating validators.
type Slashing struct {
	Indices []types.ValidatorIndex `yaml:"indices"`
}

// Check holds the expected state of the chain after the previous steps.
// Unset fields are not checked.
type Check struct {
	Head                *Head       `yaml:"head,omitempty"`
	JustifiedCheckpoint *Checkpoint `yaml:"justified_checkpoint,omitempty"`
	FinalizedCheckpoint *Checkpoint `yaml:"finalized_checkpoint,omitempty"`
	NodeCount           *int        `yaml:"node_count,omitempty"`
}

// Head is the expected head block.
type Head struct {
	Slot types.Slot `yaml:"slot"`
	Root string     `yaml:"root"`
}

func decodeRoot(s string) ([32]byte, error) {
	if s == "" {
		return [32]byte{}, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return [32]byte{}, errors.Wrapf(err, "could not decode root %q", s)
	}
	if len(b) != fieldparams.RootLength {
		return [32]byte{}, errors.Errorf("root %q is %d bytes, want %d", s, len(b), fieldparams.RootLength)
	}
	return bytesutil.ToBytes32(b), nil
}

func (c *Checkpoint) toForkChoice() (*forkchoicetypes.Checkpoint, error) {
	if c == nil {
		return nil, nil
	}
	root, err := decodeRoot(c.Root)
	if err != nil {
		return nil, err
	}
	return &forkchoicetypes.Checkpoint{Epoch: c.Epoch, Root: root}, nil
}

func (b *Block) toForkChoice() (*forkchoicetypes.BlockAndCheckpoints, error) {
	blk := &forkchoicetypes.Block{Slot: b.Slot, PayloadStatus: forkchoicetypes.Optimistic}
	var err error
	if blk.Root, err = decodeRoot(b.Root); err != nil {
		return nil, err
	}
	if blk.ParentRoot, err = decodeRoot(b.ParentRoot); err != nil {
		return nil, err
	}
	if blk.StateRoot, err = decodeRoot(b.StateRoot); err != nil {
		return nil, err
	}
	if blk.TargetRoot, err = decodeRoot(b.TargetRoot); err != nil {
		return nil, err
	}
	if b.PayloadStatus != "" {
		if blk.PayloadStatus, err = forkchoicetypes.PayloadStatusFromString(b.PayloadStatus); err != nil {
			return nil, err
		}
	}
	out := &forkchoicetypes.BlockAndCheckpoints{Block: blk}
	if out.JustifiedCheckpoint, err = b.JustifiedCheckpoint.toForkChoice(); err != nil {
		return nil, err
	}
	if out.FinalizedCheckpoint, err = b.FinalizedCheckpoint.toForkChoice(); err != nil {
		return nil, err
	}
	if out.UnrealizedJustifiedCheckpoint, err = b.UnrealizedJustifiedCheckpoint.toForkChoice(); err != nil {
		return nil, err
	}
	if out.UnrealizedFinalizedCheckpoint, err = b.UnrealizedFinalizedCheckpoint.toForkChoice(); err != nil {
		return nil, err
	}
	return out, nil
}
