package node

import (
	"io"

	"github.com/forkchoice/beacon/beacon-chain/blockchain"
)

// Option for beacon node configuration.
type Option func(bn *BeaconNode) error

// WithBlockchainFlagOptions includes functional options for the blockchain service related to CLI flags.
func WithBlockchainFlagOptions(opts []blockchain.Option) Option {
	return func(bn *BeaconNode) error {
		bn.blockchainFlagOpts = opts
		return nil
	}
}

// WithPromptReader sets where the answer to the clear database prompt is read from.
func WithPromptReader(r io.Reader) Option {
	return func(bn *BeaconNode) error {
		bn.promptReader = r
		return nil
	}
}
