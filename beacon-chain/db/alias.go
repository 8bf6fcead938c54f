package db

import "github.com/forkchoice/beacon/beacon-chain/db/iface"

// ReadOnlyDatabase exposes the fork choice data read methods.
type ReadOnlyDatabase = iface.ReadOnlyDatabase

// HeadAccessDatabase exposes the fork choice data write methods.
type HeadAccessDatabase = iface.HeadAccessDatabase

// Database defines the necessary methods for the beacon node's persistent storage.
type Database = iface.Database
