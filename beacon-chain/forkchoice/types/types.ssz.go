package types

import (
	ssz "github.com/ferranbt/fastssz"
	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
)

// IMPORTANT
// The methods in this file are hand-written, the layouts are fixed size
// containers of little endian integers and 32 byte roots.

const (
	checkpointSSZSize          = 40
	blockSSZSize               = 137
	blockAndCheckpointsSSZSize = blockSSZSize + 4*checkpointSSZSize
	latestMessageSSZSize       = 48
)

var errMarshalNilField = errors.New("cannot marshal block with nil block or checkpoints")

// MarshalSSZ ssz marshals the Checkpoint object
func (c *Checkpoint) MarshalSSZ() ([]byte, error) {
	return ssz.MarshalSSZ(c)
}

// MarshalSSZTo ssz marshals the Checkpoint object to a target array
func (c *Checkpoint) MarshalSSZTo(buf []byte) (dst []byte, err error) {
	dst = buf

	// Field (0) 'Epoch'
	dst = ssz.MarshalUint64(dst, uint64(c.Epoch))

	// Field (1) 'Root'
	dst = append(dst, c.Root[:]...)

	return
}

// UnmarshalSSZ ssz unmarshals the Checkpoint object
func (c *Checkpoint) UnmarshalSSZ(buf []byte) error {
	if len(buf) != checkpointSSZSize {
		return ssz.ErrSize
	}

	// Field (0) 'Epoch'
	c.Epoch = types.Epoch(ssz.UnmarshallUint64(buf[0:8]))

	// Field (1) 'Root'
	copy(c.Root[:], buf[8:40])

	return nil
}

// SizeSSZ returns the ssz encoded size in bytes for the Checkpoint object
func (c *Checkpoint) SizeSSZ() int {
	return checkpointSSZSize
}

// MarshalSSZ ssz marshals the Block object
func (b *Block) MarshalSSZ() ([]byte, error) {
	return ssz.MarshalSSZ(b)
}

// MarshalSSZTo ssz marshals the Block object to a target array
func (b *Block) MarshalSSZTo(buf []byte) (dst []byte, err error) {
	dst = buf

	// Field (0) 'Slot'
	dst = ssz.MarshalUint64(dst, uint64(b.Slot))

	// Field (1) 'Root'
	dst = append(dst, b.Root[:]...)

	// Field (2) 'ParentRoot'
	dst = append(dst, b.ParentRoot[:]...)

	// Field (3) 'StateRoot'
	dst = append(dst, b.StateRoot[:]...)

	// Field (4) 'TargetRoot'
	dst = append(dst, b.TargetRoot[:]...)

	// Field (5) 'PayloadStatus'
	dst = append(dst, byte(b.PayloadStatus))

	return
}

// UnmarshalSSZ ssz unmarshals the Block object
func (b *Block) UnmarshalSSZ(buf []byte) error {
	if len(buf) != blockSSZSize {
		return ssz.ErrSize
	}

	// Field (0) 'Slot'
	b.Slot = types.Slot(ssz.UnmarshallUint64(buf[0:8]))

	// Field (1) 'Root'
	copy(b.Root[:], buf[8:40])

	// Field (2) 'ParentRoot'
	copy(b.ParentRoot[:], buf[40:72])

	// Field (3) 'StateRoot'
	copy(b.StateRoot[:], buf[72:104])

	// Field (4) 'TargetRoot'
	copy(b.TargetRoot[:], buf[104:136])

	// Field (5) 'PayloadStatus'
	b.PayloadStatus = PayloadStatus(buf[136])

	return nil
}

// SizeSSZ returns the ssz encoded size in bytes for the Block object
func (b *Block) SizeSSZ() int {
	return blockSSZSize
}

// MarshalSSZ ssz marshals the BlockAndCheckpoints object
func (b *BlockAndCheckpoints) MarshalSSZ() ([]byte, error) {
	return ssz.MarshalSSZ(b)
}

// MarshalSSZTo ssz marshals the BlockAndCheckpoints object to a target
// array. Missing unrealized checkpoints are written as the realized ones.
func (b *BlockAndCheckpoints) MarshalSSZTo(buf []byte) (dst []byte, err error) {
	dst = buf
	if b.Block == nil || b.JustifiedCheckpoint == nil || b.FinalizedCheckpoint == nil {
		return nil, errMarshalNilField
	}
	uj := b.UnrealizedJustifiedCheckpoint
	if uj == nil {
		uj = b.JustifiedCheckpoint
	}
	uf := b.UnrealizedFinalizedCheckpoint
	if uf == nil {
		uf = b.FinalizedCheckpoint
	}

	// Field (0) 'Block'
	if dst, err = b.Block.MarshalSSZTo(dst); err != nil {
		return
	}

	// Field (1) 'JustifiedCheckpoint'
	if dst, err = b.JustifiedCheckpoint.MarshalSSZTo(dst); err != nil {
		return
	}

	// Field (2) 'FinalizedCheckpoint'
	if dst, err = b.FinalizedCheckpoint.MarshalSSZTo(dst); err != nil {
		return
	}

	// Field (3) 'UnrealizedJustifiedCheckpoint'
	if dst, err = uj.MarshalSSZTo(dst); err != nil {
		return
	}

	// Field (4) 'UnrealizedFinalizedCheckpoint'
	if dst, err = uf.MarshalSSZTo(dst); err != nil {
		return
	}

	return
}

// UnmarshalSSZ ssz unmarshals the BlockAndCheckpoints object
func (b *BlockAndCheckpoints) UnmarshalSSZ(buf []byte) error {
	if len(buf) != blockAndCheckpointsSSZSize {
		return ssz.ErrSize
	}

	// Field (0) 'Block'
	if b.Block == nil {
		b.Block = new(Block)
	}
	if err := b.Block.UnmarshalSSZ(buf[0:blockSSZSize]); err != nil {
		return err
	}

	cps := []**Checkpoint{
		&b.JustifiedCheckpoint,
		&b.FinalizedCheckpoint,
		&b.UnrealizedJustifiedCheckpoint,
		&b.UnrealizedFinalizedCheckpoint,
	}
	for i, cp := range cps {
		if *cp == nil {
			*cp = new(Checkpoint)
		}
		start := blockSSZSize + i*checkpointSSZSize
		if err := (*cp).UnmarshalSSZ(buf[start : start+checkpointSSZSize]); err != nil {
			return err
		}
	}

	return nil
}

// SizeSSZ returns the ssz encoded size in bytes for the BlockAndCheckpoints object
func (b *BlockAndCheckpoints) SizeSSZ() int {
	return blockAndCheckpointsSSZSize
}

// MarshalSSZ ssz marshals the LatestMessage object
func (m *LatestMessage) MarshalSSZ() ([]byte, error) {
	return ssz.MarshalSSZ(m)
}

// MarshalSSZTo ssz marshals the LatestMessage object to a target array
func (m *LatestMessage) MarshalSSZTo(buf []byte) (dst []byte, err error) {
	dst = buf

	// Field (0) 'Root'
	dst = append(dst, m.Root[:]...)

	// Field (1) 'Epoch'
	dst = ssz.MarshalUint64(dst, uint64(m.Epoch))

	// Field (2) 'Balance'
	dst = ssz.MarshalUint64(dst, m.Balance)

	return
}

// UnmarshalSSZ ssz unmarshals the LatestMessage object
func (m *LatestMessage) UnmarshalSSZ(buf []byte) error {
	if len(buf) != latestMessageSSZSize {
		return ssz.ErrSize
	}

	// Field (0) 'Root'
	copy(m.Root[:], buf[0:32])

	// Field (1) 'Epoch'
	m.Epoch = types.Epoch(ssz.UnmarshallUint64(buf[32:40]))

	// Field (2) 'Balance'
	m.Balance = ssz.UnmarshallUint64(buf[40:48])

	return nil
}

// SizeSSZ returns the ssz encoded size in bytes for the LatestMessage object
func (m *LatestMessage) SizeSSZ() int {
	return latestMessageSSZSize
}
