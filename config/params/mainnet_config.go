package params

import (
	types "github.com/prysmaticlabs/eth2-types"
)

// MainnetConfig returns the configuration to be used in the main network.
func MainnetConfig() *BeaconChainConfig {
	return mainnetBeaconConfig
}

var mainnetBeaconConfig = &BeaconChainConfig{
	// Constants (Non-configurable)
	ZeroHash: [32]byte{},

	// Initial value constants.
	GenesisEpoch: 0,
	GenesisSlot:  0,

	// Time parameter constants.
	SecondsPerSlot:             12,
	SlotsPerEpoch:              32,
	SafeSlotsToUpdateJustified: 8,

	// Fork choice values.
	ProtoArrayPruneThreshold: 256,
	ProposerScoreBoost:       40,

	VotesFlushPeriod: 384,

	ConfigName: ConfigNames[Mainnet],
	PresetBase: "mainnet",
}

// MinimalSpecConfig retrieves the minimal config used in spec tests.
func MinimalSpecConfig() *BeaconChainConfig {
	minimalConfig := mainnetBeaconConfig.Copy()
	minimalConfig.SecondsPerSlot = 6
	minimalConfig.SlotsPerEpoch = types.Slot(8)
	minimalConfig.SafeSlotsToUpdateJustified = 2
	minimalConfig.ProtoArrayPruneThreshold = 64
	minimalConfig.VotesFlushPeriod = 48
	minimalConfig.ConfigName = ConfigNames[Minimal]
	minimalConfig.PresetBase = "minimal"
	return minimalConfig
}
