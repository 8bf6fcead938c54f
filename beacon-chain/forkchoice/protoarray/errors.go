package protoarray

import "errors"

var errNilNode = errors.New("invalid nil or unknown node")
var errNilBlock = errors.New("nil block")
var errUnknownFinalizedRoot = errors.New("unknown finalized root")
var errUnknownJustifiedRoot = errors.New("unknown justified root")
var errInvalidOptimisticStatus = errors.New("invalid optimistic status")
var errInvalidBestNode = errors.New("best node is not viable for head")
var errInvalidJustifiedEpoch = errors.New("justified epoch is lower than finalized epoch")
var errNoAncestorAtSlot = errors.New("no ancestor at or before slot")
