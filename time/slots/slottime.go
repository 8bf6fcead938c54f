package slots

import (
	"math/bits"
	"time"

	"github.com/forkchoice/beacon/config/params"
	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
)

// ToEpoch returns the epoch number of the input slot.
//
// Spec pseudocode definition:
//  def compute_epoch_at_slot(slot: Slot) -> Epoch:
//    """
//    Return the epoch number at ``slot``.
//    """
//    return Epoch(slot // SLOTS_PER_EPOCH)
func ToEpoch(slot types.Slot) types.Epoch {
	return types.Epoch(uint64(slot) / uint64(params.BeaconConfig().SlotsPerEpoch))
}

// EpochStart returns the first slot number of the
// current epoch.
//
// Spec pseudocode definition:
//  def compute_start_slot_at_epoch(epoch: Epoch) -> Slot:
//    """
//    Return the start slot of ``epoch``.
//    """
//    return Slot(epoch * SLOTS_PER_EPOCH)
func EpochStart(epoch types.Epoch) (types.Slot, error) {
	hi, lo := bits.Mul64(uint64(epoch), uint64(params.BeaconConfig().SlotsPerEpoch))
	if hi != 0 {
		return 0, errors.Errorf("start slot calculation overflows: epoch %d", epoch)
	}
	return types.Slot(lo), nil
}

// IsEpochStart returns true if the given slot number is an epoch starting slot
// number.
func IsEpochStart(slot types.Slot) bool {
	return uint64(slot)%uint64(params.BeaconConfig().SlotsPerEpoch) == 0
}

// SinceEpochStarts returns number of slots since the start of the epoch.
func SinceEpochStarts(slot types.Slot) types.Slot {
	return types.Slot(uint64(slot) % uint64(params.BeaconConfig().SlotsPerEpoch))
}

// CurrentSlot returns the current slot as determined by the local clock and
// provided genesis time.
func CurrentSlot(genesisTimeSec uint64) types.Slot {
	now := time.Now().Unix()
	genesis := int64(genesisTimeSec)
	if now < genesis {
		return 0
	}
	return types.Slot(uint64(now-genesis) / params.BeaconConfig().SecondsPerSlot)
}

// StartTime returns the start time in terms of its unix epoch
// value.
func StartTime(genesis uint64, slot types.Slot) time.Time {
	duration := time.Second * time.Duration(uint64(slot)*params.BeaconConfig().SecondsPerSlot)
	startTime := time.Unix(int64(genesis), 0).Add(duration)
	return startTime
}
