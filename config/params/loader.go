package params

import (
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// LoadChainConfigFile loads a beacon chain config file, applies its values on
// top of the preset it names and makes it the active configuration.
func LoadChainConfigFile(chainConfigFileName string) error {
	yamlFile, err := ioutil.ReadFile(chainConfigFileName) // #nosec G304
	if err != nil {
		return errors.Wrap(err, "failed to read chain config file")
	}
	conf, err := UnmarshalConfig(yamlFile)
	if err != nil {
		return err
	}
	log.Debugf("Config file values: %+v", conf)
	OverrideBeaconConfig(conf)
	return nil
}

// UnmarshalConfig decodes a yaml chain config. Values absent from the file
// keep the defaults of the preset named by PRESET_BASE (mainnet by default).
func UnmarshalConfig(yamlFile []byte) (*BeaconChainConfig, error) {
	// Default to using mainnet.
	conf := MainnetConfig().Copy()
	// To track if config name is defined inside config file.
	hasConfigName := false
	lines := strings.Split(string(yamlFile), "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "CONFIG_NAME") {
			hasConfigName = true
		}
		if strings.HasPrefix(line, "PRESET_BASE: 'minimal'") ||
			strings.HasPrefix(line, `PRESET_BASE: "minimal"`) ||
			strings.HasPrefix(line, "PRESET_BASE: minimal") ||
			strings.HasPrefix(line, "# Minimal preset") {
			conf = MinimalSpecConfig().Copy()
		}
	}
	if err := yaml.UnmarshalStrict(yamlFile, conf); err != nil {
		return nil, errors.Wrap(err, "failed to parse chain config yaml file")
	}
	if !hasConfigName {
		conf.ConfigName = DevnetName
	}
	if conf.SlotsPerEpoch == 0 {
		return nil, errors.New("SLOTS_PER_EPOCH must be greater than zero")
	}
	if conf.SecondsPerSlot == 0 {
		return nil, errors.New("SECONDS_PER_SLOT must be greater than zero")
	}
	return conf, nil
}
