// Package logging holds the log formatters of the node, the persistent log
// file hook and helpers producing standard sets of log fields.
package logging

import (
	"fmt"

	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/encoding/bytesutil"
	"github.com/sirupsen/logrus"
)

// BlockFields extracts a standard set of fields from a fork choice block into
// a logrus.Fields struct which can be passed to log.WithFields.
func BlockFields(b *forkchoicetypes.BlockAndCheckpoints) logrus.Fields {
	if b == nil || b.Block == nil {
		return logrus.Fields{}
	}
	fields := logrus.Fields{
		"slot":          b.Block.Slot,
		"root":          fmt.Sprintf("%#x", bytesutil.Trunc(b.Block.Root[:])),
		"parentRoot":    fmt.Sprintf("%#x", bytesutil.Trunc(b.Block.ParentRoot[:])),
		"payloadStatus": b.Block.PayloadStatus.String(),
	}
	if b.JustifiedCheckpoint != nil {
		fields["justifiedEpoch"] = b.JustifiedCheckpoint.Epoch
	}
	if b.FinalizedCheckpoint != nil {
		fields["finalizedEpoch"] = b.FinalizedCheckpoint.Epoch
	}
	return fields
}

// CheckpointFields returns the fields of a checkpoint with the given key prefix.
func CheckpointFields(prefix string, cp *forkchoicetypes.Checkpoint) logrus.Fields {
	if cp == nil {
		return logrus.Fields{}
	}
	return logrus.Fields{
		prefix + "Epoch": cp.Epoch,
		prefix + "Root":  fmt.Sprintf("%#x", bytesutil.Trunc(cp.Root[:])),
	}
}
