package forkchoice

import "github.com/pkg/errors"

var (
	// ErrUnknownParent is returned when a block is inserted before its parent.
	ErrUnknownParent = errors.New("unknown parent root")
	// ErrPrunedRoot is returned when a block that was pruned is inserted again.
	ErrPrunedRoot = errors.New("block root was pruned from fork choice")
	// ErrNilCheckpoint is returned when a required checkpoint is missing.
	ErrNilCheckpoint = errors.New("nil checkpoint")
	// ErrNotInitialized is returned when head is requested before any block was inserted.
	ErrNotInitialized = errors.New("fork choice store is not initialized")
	// ErrUnknownCommonAncestor is returned when two roots share no ancestor in the store.
	ErrUnknownCommonAncestor = errors.New("unknown common ancestor")
	// ErrInvariantViolation signals that the node array can no longer be trusted.
	ErrInvariantViolation = errors.New("fork choice invariant violation")
	// ErrJustifiedRootNotFound signals that the justified block vanished from the store.
	ErrJustifiedRootNotFound = errors.New("justified root not found in fork choice store")
	// ErrResyncRequired is returned by a poisoned store for every head request.
	ErrResyncRequired = errors.New("fork choice store is poisoned, resync from persisted state required")
)

// IsFatal returns true when err leaves the fork choice store in an untrusted state.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvariantViolation) ||
		errors.Is(err, ErrJustifiedRootNotFound) ||
		errors.Is(err, ErrResyncRequired)
}
