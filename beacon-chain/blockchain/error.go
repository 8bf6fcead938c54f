package blockchain

import "github.com/pkg/errors"

var (
	// errNilBlock is returned when a nil block is received.
	errNilBlock = errors.New("nil block")
	// errNilBeaconDB is returned when the service is created without a database.
	errNilBeaconDB = errors.New("nil beacon db")
	// errWrongBalanceCount is returned when attesting indices and balances differ in length.
	errWrongBalanceCount = errors.New("wrong number of balances for attesting indices")
	// errNilHeadBlock is returned when the head root has no block in the database.
	errNilHeadBlock = errors.New("head block not found in db")
	// errMissingFinalizedBlock is returned when the saved finalized checkpoint has no block.
	errMissingFinalizedBlock = errors.New("finalized block not found in db")
	// errMissingJustifiedBlock is returned when the saved justified checkpoint was not replayed.
	errMissingJustifiedBlock = errors.New("justified block not found after replay")
)
