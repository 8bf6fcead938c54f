package blockchain

import (
	forkchoicetypes "github.com/forkchoice/beacon/beacon-chain/forkchoice/types"
	"github.com/forkchoice/beacon/runtime/logging"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "blockchain")

// logBlockProcessed logs block related data every time a block enters fork choice.
func logBlockProcessed(b *forkchoicetypes.BlockAndCheckpoints) {
	log.WithFields(logging.BlockFields(b)).Debug("Finished applying block to fork choice store")
}
