// Package kv defines a bolt-db, key-value store implementation
// of the Database interface defined by a fork choice beacon node.
package kv

import (
	"context"
	"os"
	"path"
	"time"

	"github.com/forkchoice/beacon/beacon-chain/db/iface"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	prombolt "github.com/prysmaticlabs/prombbolt"
	bolt "go.etcd.io/bbolt"
)

const (
	// DatabaseFileName is the name of the beacon node database.
	DatabaseFileName = "forkchoice.db"

	boltAllocSize = 8 * 1024 * 1024
)

// BlockCacheSize specifies 8 epochs worth of blocks cached.
var BlockCacheSize = 256

var _ iface.Database = (*Store)(nil)

// Config for the bolt db kv store.
type Config struct {
	InitialMMapSize int
}

// Store defines an implementation of the fork choice Database interface
// using BoltDB as the underlying persistent kv-store.
type Store struct {
	db           *bolt.DB
	databasePath string
	blockCache   *lru.Cache
}

// NewKVStore initializes a new boltDB key-value store at the directory
// path specified, creates the kv-buckets based on the schema, and stores
// an open connection db object as a property of the Store struct.
func NewKVStore(_ context.Context, dirPath string, config *Config) (*Store, error) {
	if config == nil {
		config = &Config{}
	}
	exists, err := hasDir(dirPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := os.MkdirAll(dirPath, 0700); err != nil {
			return nil, err
		}
	}
	datafile := path.Join(dirPath, DatabaseFileName)
	boltDB, err := bolt.Open(
		datafile,
		0600,
		&bolt.Options{
			Timeout:         1 * time.Second,
			InitialMmapSize: config.InitialMMapSize,
		},
	)
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, err
	}
	boltDB.AllocSize = boltAllocSize
	blockCache, err := lru.New(BlockCacheSize)
	if err != nil {
		return nil, err
	}

	kv := &Store{
		db:           boltDB,
		databasePath: dirPath,
		blockCache:   blockCache,
	}

	if err := kv.db.Update(func(tx *bolt.Tx) error {
		return createBuckets(
			tx,
			blocksBucket,
			blockRootsBucket,
			votesBucket,
			checkpointBucket,
			chainMetadataBucket,
		)
	}); err != nil {
		return nil, err
	}

	err = prometheus.Register(createBoltCollector(kv.db))

	return kv, err
}

// ClearDB removes the previously stored database in the data directory.
func (s *Store) ClearDB() error {
	if _, err := os.Stat(s.databasePath); os.IsNotExist(err) {
		return nil
	}
	prometheus.Unregister(createBoltCollector(s.db))
	if err := os.Remove(path.Join(s.databasePath, DatabaseFileName)); err != nil {
		return errors.Wrap(err, "could not remove database file")
	}
	return nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	prometheus.Unregister(createBoltCollector(s.db))
	s.blockCache.Purge()
	return s.db.Close()
}

// DatabasePath at which this database writes files.
func (s *Store) DatabasePath() string {
	return s.databasePath
}

func createBuckets(tx *bolt.Tx, buckets ...[]byte) error {
	for _, bucket := range buckets {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return err
		}
	}
	return nil
}

// createBoltCollector returns a prometheus collector specifically configured for boltdb.
func createBoltCollector(db *bolt.DB) prometheus.Collector {
	return prombolt.New("boltDB", db)
}

func hasDir(dirPath string) (bool, error) {
	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
