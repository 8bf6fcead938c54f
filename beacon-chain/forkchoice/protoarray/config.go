package protoarray

import (
	"github.com/forkchoice/beacon/beacon-chain/forkchoice"
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/config/params"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	types "github.com/prysmaticlabs/eth2-types"
)

const defaultPrunedRootsCacheSize = 1 << 14

// Config holds everything needed to construct a fork choice store.
type Config struct {
	// PruneThreshold is the minimal index of the finalized node before the
	// node array is compacted.
	PruneThreshold uint64
	// InitialEpoch is the epoch of the anchor the store starts from. Until
	// finality moves past it every non invalid node is viable for head.
	InitialEpoch types.Epoch
	// JustifiedCheckpoint and FinalizedCheckpoint are required.
	JustifiedCheckpoint *forkchoicetypes.Checkpoint
	FinalizedCheckpoint *forkchoicetypes.Checkpoint
	// PrunedRootsCacheSize bounds how many pruned roots are remembered to
	// reject their reinsertion.
	PrunedRootsCacheSize int
}

// DefaultConfig returns a config with the prune threshold of the active beacon
// config, anchored at genesis on the given checkpoints.
func DefaultConfig(justified, finalized *forkchoicetypes.Checkpoint) *Config {
	return &Config{
		PruneThreshold:       params.BeaconConfig().ProtoArrayPruneThreshold,
		InitialEpoch:         params.BeaconConfig().GenesisEpoch,
		JustifiedCheckpoint:  justified,
		FinalizedCheckpoint:  finalized,
		PrunedRootsCacheSize: defaultPrunedRootsCacheSize,
	}
}

func (c *Config) validate() error {
	if c.JustifiedCheckpoint == nil {
		return errors.Wrap(forkchoice.ErrNilCheckpoint, "justified checkpoint is required")
	}
	if c.FinalizedCheckpoint == nil {
		return errors.Wrap(forkchoice.ErrNilCheckpoint, "finalized checkpoint is required")
	}
	if c.JustifiedCheckpoint.Epoch < c.FinalizedCheckpoint.Epoch {
		return errors.Wrapf(errInvalidJustifiedEpoch, "justified %d, finalized %d",
			c.JustifiedCheckpoint.Epoch, c.FinalizedCheckpoint.Epoch)
	}
	if c.FinalizedCheckpoint.Epoch < c.InitialEpoch {
		return errors.Errorf("finalized epoch %d is lower than initial epoch %d",
			c.FinalizedCheckpoint.Epoch, c.InitialEpoch)
	}
	return nil
}

// New initializes a new fork choice store.
func New(cfg *Config) (*ForkChoice, error) {
	if cfg == nil {
		return nil, errors.New("nil fork choice config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	size := cfg.PrunedRootsCacheSize
	if size <= 0 {
		size = defaultPrunedRootsCacheSize
	}
	prunedRoots, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "could not create pruned roots cache")
	}
	s := &Store{
		pruneThreshold:                cfg.PruneThreshold,
		initialEpoch:                  cfg.InitialEpoch,
		justifiedCheckpoint:           cfg.JustifiedCheckpoint.Copy(),
		prevJustifiedCheckpoint:       cfg.JustifiedCheckpoint.Copy(),
		bestJustifiedCheckpoint:       cfg.JustifiedCheckpoint.Copy(),
		unrealizedJustifiedCheckpoint: cfg.JustifiedCheckpoint.Copy(),
		unrealizedFinalizedCheckpoint: cfg.FinalizedCheckpoint.Copy(),
		finalizedCheckpoint:           cfg.FinalizedCheckpoint.Copy(),
		nodes:                         make([]*Node, 0),
		nodesIndices:                  make(map[[32]byte]uint64),
		canonicalNodes:                make(map[[32]byte]bool),
		prunedRoots:                   prunedRoots,
	}

	return &ForkChoice{
		store:          s,
		votes:          make([]Vote, 0),
		slashedIndices: make(map[types.ValidatorIndex]bool),
	}, nil
}
