// Package cache is a process-local retention store for values that are
// expensive to rediscover but cheap to get wrong if stale: per-driver
// option lists scraped from `docker-machine create --driver X --help`, and
// tool version probes (`docker version`, `docker-machine version`,
// `docker-compose version`). It is not where the cluster's persistent
// state lives -- the discovery cache and Swarm token cache are plain text
// side-car files next to the cluster YAML, and stay that way regardless of
// what this package does.
package cache

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketDriverOptions = []byte("driver_options")
	bucketToolVersions  = []byte("tool_versions")
)

// Store is a bbolt-backed key/value cache, bucketed by kind.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the retention cache under dataDir.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "machinery.cache")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open retention cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketDriverOptions, bucketToolVersions} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DriverOptions is the cached set of `--driver-*` flags a docker-machine
// driver accepts, as scraped from its `--help` output.
type DriverOptions struct {
	Driver   string
	Options  []string
	CachedAt time.Time
}

// PutDriverOptions stores the option list discovered for one driver.
func (s *Store) PutDriverOptions(opts DriverOptions) error {
	return s.put(bucketDriverOptions, opts.Driver, opts)
}

// GetDriverOptions returns the cached option list for a driver, if any.
func (s *Store) GetDriverOptions(driver string) (DriverOptions, bool, error) {
	var opts DriverOptions
	ok, err := s.get(bucketDriverOptions, driver, &opts)
	return opts, ok, err
}

// ToolVersion is the cached version string for one of the three external
// tools machinery drives (docker, docker-machine, docker-compose).
type ToolVersion struct {
	Tool     string
	Version  string
	CachedAt time.Time
}

// PutToolVersion stores the version probed for one tool.
func (s *Store) PutToolVersion(tv ToolVersion) error {
	return s.put(bucketToolVersions, tv.Tool, tv)
}

// GetToolVersion returns the cached version for a tool, if any.
func (s *Store) GetToolVersion(tool string) (ToolVersion, bool, error) {
	var tv ToolVersion
	ok, err := s.get(bucketToolVersions, tool, &tv)
	return tv, ok, err
}

func (s *Store) put(bucket []byte, key string, value interface{}) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *Store) get(bucket []byte, key string, dest interface{}) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, dest)
	})
	return found, err
}
