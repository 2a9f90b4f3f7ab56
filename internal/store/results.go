package store

import (
	"encoding/json"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/kilupskalvis/mvc/internal/models"
)

// SaveResult caches a completed comparison, replacing any previous result for
// the same changeset range and direction.
func (s *Store) SaveResult(result *models.ComparisonResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode comparison result: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComparisons)
		if b == nil {
			return fmt.Errorf("comparisons bucket not found")
		}
		return b.Put([]byte(result.RangeKey()), data)
	})
}

// GetResult returns the cached result for a changeset range key, or nil when
// no result is cached.
func (s *Store) GetResult(rangeKey string) (*models.ComparisonResult, error) {
	var result *models.ComparisonResult
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComparisons)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(rangeKey))
		if data == nil {
			return nil
		}
		result = &models.ComparisonResult{}
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("decode comparison result: %w", err)
		}
		return nil
	})
	return result, err
}

// DeleteResult removes one cached result. Deleting a missing key is not an
// error.
func (s *Store) DeleteResult(rangeKey string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComparisons)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(rangeKey))
	})
}

// ListResults returns all cached comparison results, newest first.
func (s *Store) ListResults() ([]*models.ComparisonResult, error) {
	var results []*models.ComparisonResult
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketComparisons)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, data []byte) error {
			var result models.ComparisonResult
			if err := json.Unmarshal(data, &result); err != nil {
				return fmt.Errorf("decode comparison result: %w", err)
			}
			results = append(results, &result)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

// ClearResults removes every cached comparison result.
func (s *Store) ClearResults() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketComparisons) != nil {
			if err := tx.DeleteBucket(bucketComparisons); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucketIfNotExists(bucketComparisons)
		return err
	})
}
