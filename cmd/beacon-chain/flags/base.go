// Package flags defines the command line flags of the beacon node.
package flags

import (
	"github.com/urfave/cli/v2"
)

var (
	// MonitoringPortFlag defines the http port used to serve prometheus metrics.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used to listening and respond metrics for prometheus.",
		Value: 8080,
	}
	// GenesisTimeFlag specifies the genesis time driving the slot clock.
	GenesisTimeFlag = &cli.Uint64Flag{
		Name: "genesis-time",
		Usage: "Unix timestamp of the genesis of the chain. Head is updated at every slot " +
			"of the local clock when set.",
	}
	// PruneThresholdFlag specifies how many nodes precede the finalized node before fork choice prunes them.
	PruneThresholdFlag = &cli.Uint64Flag{
		Name:  "prune-threshold",
		Usage: "Minimum number of fork choice nodes before the finalized node to trigger pruning.",
	}
	// VotesFlushPeriodFlag specifies how often the latest votes are persisted.
	VotesFlushPeriodFlag = &cli.DurationFlag{
		Name:  "votes-flush-period",
		Usage: "Period at which the latest validator votes are saved to the database, 0 to only save on shutdown.",
	}
	// ReplayFileFlag specifies a scenario file replayed into fork choice on startup.
	ReplayFileFlag = &cli.StringFlag{
		Name:  "replay-file",
		Usage: "Path to a YAML scenario of blocks, attestations and payload verdicts to feed on startup.",
	}
)
