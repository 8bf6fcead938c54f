package kv

// The schema will define how to store and retrieve data from the db.
// Blocks are keyed by big endian slot followed by the block root so a
// cursor walks them in slot order, the roots bucket maps a block root back
// to that key.
var (
	blocksBucket        = []byte("blocks")
	blockRootsBucket    = []byte("block-roots")
	votesBucket         = []byte("votes")
	checkpointBucket    = []byte("check-point")
	chainMetadataBucket = []byte("chain-metadata")

	// Specific keys.
	headBlockRootKey       = []byte("head-root")
	justifiedCheckpointKey = []byte("justified-checkpoint")
	finalizedCheckpointKey = []byte("finalized-checkpoint")
)
