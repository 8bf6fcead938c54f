package params

const (
	MainnetName = "mainnet"
	MinimalName = "minimal"
	DevnetName  = "devnet"
)

// ConfigName enum describes the type of known network in use.
type ConfigName = int

const (
	Mainnet ConfigName = iota
	Minimal
	Devnet
)

// ConfigNames provides network configuration names.
var ConfigNames = map[ConfigName]string{
	Mainnet: MainnetName,
	Minimal: MinimalName,
	Devnet:  DevnetName,
}
