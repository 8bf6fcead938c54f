package params_test

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/forkchoice/beacon/config/params"
	"github.com/forkchoice/beacon/testing/assert"
	"github.com/forkchoice/beacon/testing/require"
	types "github.com/prysmaticlabs/eth2-types"
)

func TestUnmarshalConfig_MainnetDefaults(t *testing.T) {
	conf, err := params.UnmarshalConfig([]byte("CONFIG_NAME: 'mainnet'\n"))
	require.NoError(t, err)
	assert.Equal(t, types.Slot(32), conf.SlotsPerEpoch)
	assert.Equal(t, uint64(12), conf.SecondsPerSlot)
	assert.Equal(t, uint64(256), conf.ProtoArrayPruneThreshold)
	assert.Equal(t, "mainnet", conf.ConfigName)
}

func TestUnmarshalConfig_MinimalPreset(t *testing.T) {
	yml := "PRESET_BASE: 'minimal'\nPROTO_ARRAY_PRUNE_THRESHOLD: 3\n"
	conf, err := params.UnmarshalConfig([]byte(yml))
	require.NoError(t, err)
	assert.Equal(t, types.Slot(8), conf.SlotsPerEpoch)
	assert.Equal(t, uint64(3), conf.ProtoArrayPruneThreshold)
	assert.Equal(t, params.DevnetName, conf.ConfigName, "Missing config name should default to devnet")
}

func TestUnmarshalConfig_UnknownField(t *testing.T) {
	_, err := params.UnmarshalConfig([]byte("NOT_A_FIELD: 12\n"))
	assert.ErrorContains(t, "failed to parse chain config yaml file", err)
}

func TestUnmarshalConfig_ZeroSlotsPerEpoch(t *testing.T) {
	_, err := params.UnmarshalConfig([]byte("SLOTS_PER_EPOCH: 0\n"))
	assert.ErrorContains(t, "SLOTS_PER_EPOCH must be greater than zero", err)
}

func TestLoadChainConfigFile(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, ioutil.WriteFile(file, []byte("CONFIG_NAME: 'custom'\nSECONDS_PER_SLOT: 2\n"), 0600))
	require.NoError(t, params.LoadChainConfigFile(file))
	assert.Equal(t, uint64(2), params.BeaconConfig().SecondsPerSlot)
	assert.Equal(t, "custom", params.BeaconConfig().ConfigName)
}

func TestConfig_CopyIsIndependent(t *testing.T) {
	c := params.MainnetConfig().Copy()
	c.SlotsPerEpoch = 1
	assert.Equal(t, types.Slot(32), params.MainnetConfig().SlotsPerEpoch)
}
