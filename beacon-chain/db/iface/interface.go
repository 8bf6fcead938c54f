// Package iface defines the actual database interface used
// by a fork choice beacon node, also containing useful, scoped interfaces such as
// a ReadOnlyDatabase.
package iface

import (
	"context"
	"io"

	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	types "github.com/prysmaticlabs/eth2-types"
)

// ReadOnlyDatabase defines a struct which only has read access to database methods.
type ReadOnlyDatabase interface {
	// Block related methods.
	Block(ctx context.Context, blockRoot [32]byte) (*forkchoicetypes.BlockAndCheckpoints, error)
	Blocks(ctx context.Context) ([]*forkchoicetypes.BlockAndCheckpoints, error)
	HasBlock(ctx context.Context, blockRoot [32]byte) bool
	HeadRoot(ctx context.Context) ([32]byte, error)
	// Checkpoint operations.
	JustifiedCheckpoint(ctx context.Context) (*forkchoicetypes.Checkpoint, error)
	FinalizedCheckpoint(ctx context.Context) (*forkchoicetypes.Checkpoint, error)
	// Vote operations.
	Votes(ctx context.Context) (map[types.ValidatorIndex]*forkchoicetypes.LatestMessage, error)
}

// HeadAccessDatabase defines a struct with write access to the chain data.
type HeadAccessDatabase interface {
	ReadOnlyDatabase

	// Block related methods.
	SaveBlock(ctx context.Context, block *forkchoicetypes.BlockAndCheckpoints) error
	SaveBlocks(ctx context.Context, blocks []*forkchoicetypes.BlockAndCheckpoints) error
	DeleteBlocks(ctx context.Context, blockRoots [][32]byte) error
	SaveHeadRoot(ctx context.Context, blockRoot [32]byte) error
	// Checkpoint operations.
	SaveJustifiedCheckpoint(ctx context.Context, checkpoint *forkchoicetypes.Checkpoint) error
	SaveFinalizedCheckpoint(ctx context.Context, checkpoint *forkchoicetypes.Checkpoint) error
	// Vote operations.
	SaveVotes(ctx context.Context, votes map[types.ValidatorIndex]*forkchoicetypes.LatestMessage) error
}

// Database interface with full access.
type Database interface {
	io.Closer
	HeadAccessDatabase

	DatabasePath() string
	ClearDB() error
}
