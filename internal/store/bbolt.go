// Package store provides bbolt-based persistence for MVC.
// It caches completed comparison results keyed by changeset range so that
// repeated comparisons over the same range skip the accumulation pipeline.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names used by the result cache.
var (
	bucketComparisons = []byte("comparisons")
	bucketKV          = []byte("kv")
)

const schemaVersionKey = "schema_version"

// currentSchemaVersion tracks the serialized result layout. Cached results
// written by an older layout are discarded rather than migrated; a comparison
// can always be recomputed from the snapshots.
const currentSchemaVersion = 1

// Store represents the bbolt database store.
type Store struct {
	db *bolt.DB
}

// New opens or creates a bbolt database at the given path.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Initialize creates all required buckets and drops stale cached results
// written by an incompatible schema version.
func (s *Store) Initialize() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketKV, bucketComparisons} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	stored, err := s.GetValue(schemaVersionKey)
	if err != nil {
		return err
	}
	version := strconv.Itoa(currentSchemaVersion)
	if stored != "" && stored != version {
		if err := s.ClearResults(); err != nil {
			return fmt.Errorf("drop stale comparisons: %w", err)
		}
	}
	return s.SetValue(schemaVersionKey, version)
}

// GetValue gets a value from the key-value bucket.
func (s *Store) GetValue(key string) (string, error) {
	var val string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v != nil {
			val = string(v)
		}
		return nil
	})
	return val, err
}

// SetValue sets a value in the key-value bucket.
func (s *Store) SetValue(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return fmt.Errorf("kv bucket not found")
		}
		return b.Put([]byte(key), []byte(value))
	})
}
