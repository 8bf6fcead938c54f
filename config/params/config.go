// Package params defines important constants that are essential to the
// fork choice engine and the services that drive it.
package params

import (
	"github.com/mohae/deepcopy"
	types "github.com/prysmaticlabs/eth2-types"
)

// BeaconChainConfig contains constant configs for node to participate in beacon chain.
type BeaconChainConfig struct {
	// Constants (non-configurable)
	ZeroHash [32]byte // ZeroHash is used to represent a zeroed out 32 byte array.

	// Initial value constants.
	GenesisEpoch types.Epoch `yaml:"GENESIS_EPOCH"` // GenesisEpoch is used to initialize epoch.
	GenesisSlot  types.Slot  `yaml:"GENESIS_SLOT"`  // GenesisSlot represents the first canonical slot number of the beacon chain.

	// Time parameters constants.
	SecondsPerSlot             uint64     `yaml:"SECONDS_PER_SLOT" spec:"true"`               // SecondsPerSlot is how many seconds are in a single slot.
	SlotsPerEpoch              types.Slot `yaml:"SLOTS_PER_EPOCH" spec:"true"`                // SlotsPerEpoch is the number of slots in an epoch.
	SafeSlotsToUpdateJustified types.Slot `yaml:"SAFE_SLOTS_TO_UPDATE_JUSTIFIED" spec:"true"` // SafeSlotsToUpdateJustified is the minimal slots needed to update justified check point.

	// Fork choice values.
	ProtoArrayPruneThreshold uint64 `yaml:"PROTO_ARRAY_PRUNE_THRESHOLD"` // ProtoArrayPruneThreshold is the minimal finalized index before the node array is compacted.
	ProposerScoreBoost       uint64 `yaml:"PROPOSER_SCORE_BOOST" spec:"true"` // ProposerScoreBoost defines a value that is a % of the committee weight for fork-choice boosting.

	// Slasher and persistence constants.
	VotesFlushPeriod uint64 `yaml:"VOTES_FLUSH_PERIOD"` // VotesFlushPeriod is the number of seconds between two persistence passes of the vote table.

	// Configuration metadata.
	ConfigName string `yaml:"CONFIG_NAME" spec:"true"` // ConfigName for allowing an easy human-readable way of knowing what chain is being used.
	PresetBase string `yaml:"PRESET_BASE" spec:"true"` // PresetBase represents the underlying spec preset this config is based on.
}

// Copy returns a copy of the config object.
func (b *BeaconChainConfig) Copy() *BeaconChainConfig {
	config, ok := deepcopy.Copy(*b).(BeaconChainConfig)
	if !ok {
		config = *beaconConfig
	}
	return &config
}
