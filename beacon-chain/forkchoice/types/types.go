package types

import (
	"fmt"

	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
)

// Checkpoint is an epoch boundary together with the root of the block at or
// before its first slot.
type Checkpoint struct {
	Epoch types.Epoch
	Root  [32]byte
}

// Copy returns a copy of the checkpoint, nil safe.
func (c *Checkpoint) Copy() *Checkpoint {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// PayloadStatus is the execution layer verdict on a block's payload.
type PayloadStatus uint8

const (
	// Irrelevant marks pre-merge blocks and blocks without an execution payload.
	Irrelevant PayloadStatus = iota
	// Optimistic marks blocks whose payload was not yet verified.
	Optimistic
	// Valid marks blocks whose payload was verified.
	Valid
	// Invalid marks blocks whose payload, or an ancestor's payload, was rejected.
	Invalid
)

// String returns the name of the payload status.
func (s PayloadStatus) String() string {
	switch s {
	case Irrelevant:
		return "IRRELEVANT"
	case Optimistic:
		return "OPTIMISTIC"
	case Valid:
		return "VALID"
	case Invalid:
		return "INVALID"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

// PayloadStatusFromString parses the name of a payload status.
func PayloadStatusFromString(s string) (PayloadStatus, error) {
	switch s {
	case "IRRELEVANT", "irrelevant":
		return Irrelevant, nil
	case "OPTIMISTIC", "optimistic":
		return Optimistic, nil
	case "VALID", "valid":
		return Valid, nil
	case "INVALID", "invalid":
		return Invalid, nil
	default:
		return 0, errors.Errorf("unknown payload status %q", s)
	}
}

// Block holds the identifying fields of a validated beacon block.
type Block struct {
	Slot          types.Slot
	Root          [32]byte
	ParentRoot    [32]byte
	StateRoot     [32]byte
	TargetRoot    [32]byte
	PayloadStatus PayloadStatus
}

// BlockAndCheckpoints to call the ProcessBlock function. The unrealized
// checkpoints default to the realized ones when nil.
type BlockAndCheckpoints struct {
	Block                         *Block
	JustifiedCheckpoint           *Checkpoint
	FinalizedCheckpoint           *Checkpoint
	UnrealizedJustifiedCheckpoint *Checkpoint
	UnrealizedFinalizedCheckpoint *Checkpoint
}

// LatestMessage is the last attestation target seen for a validator.
type LatestMessage struct {
	Root    [32]byte
	Epoch   types.Epoch
	Balance uint64
}

// Node is a read only snapshot of a fork choice node. Parent and
// BestDescendant are array indices, math.MaxUint64 when absent.
type Node struct {
	Slot           types.Slot
	Root           [32]byte
	Parent         uint64
	BestDescendant uint64
	Weight         uint64
	Status         PayloadStatus
}
