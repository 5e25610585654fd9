package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	bolt "go.etcd.io/bbolt"
)

const (
	// DefaultBoltPath is the default filesystem path to the BoltDB file.
	DefaultBoltPath = "notifykv.db"

	// DefaultBoltBucket is the BoltDB bucket name used inside the file.
	DefaultBoltBucket = "notifykv"
)

// BoltMap is a persistent backend map backed by BoltDB.
//
// Concurrency:
//   - All exported methods are safe for concurrent use.
//   - Every batch mutation runs in a single Bolt write transaction, which
//     gives the all-or-nothing guarantee for MultiInsert/MultiRemove.
//   - Open/Close transitions are refcounted so several components can share
//     one BoltMap; the file closes when the last user calls Close.
type BoltMap struct {
	path     string
	bucket   []byte
	handle   *bolt.DB
	opened   atomic.Bool
	refCount atomic.Int64
	lock     sync.Mutex // Serializes open/close transitions
}

// NewBoltMap constructs a BoltMap at the given filesystem path using
// DefaultBoltBucket. An empty path falls back to DefaultBoltPath.
func NewBoltMap(path string) *BoltMap {
	return &BoltMap{
		path:   resolveBoltPath(path),
		bucket: []byte(DefaultBoltBucket),
	}
}

// resolveBoltPath normalizes user-provided paths. Empty strings or
// directory-like inputs revert to the default DB file path.
func resolveBoltPath(candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return DefaultBoltPath
	}

	if strings.HasSuffix(trimmed, "/") || strings.HasSuffix(trimmed, "\\") {
		return filepath.Join(filepath.Clean(trimmed), DefaultBoltPath)
	}

	return filepath.Clean(trimmed)
}

// Open ensures the DB file is open and the bucket exists, bumping the
// refcount once per call so that Close calls balance.
func (m *BoltMap) Open() error {
	// Fast path: if already open, just bump the refcount.
	if m.opened.Load() {
		m.refCount.Add(1)
		return nil
	}

	// Only one goroutine performs the first open/initialization.
	m.lock.Lock()
	defer m.lock.Unlock()

	// Another goroutine may have opened it while we were waiting.
	if m.opened.Load() {
		m.refCount.Add(1)

		return nil
	}

	handle, err := bolt.Open(m.path, 0o600, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMapOpenFailed, err)
	}

	// Ensure the application bucket exists.
	err = handle.Update(func(tx *bolt.Tx) error {
		_, bucketErr := tx.CreateBucketIfNotExists(m.bucket)
		if bucketErr != nil {
			return fmt.Errorf("%w: %q: %w", ErrBoltBucketCreateFailed, m.bucket, bucketErr)
		}

		return nil
	})
	if err != nil {
		_ = handle.Close()

		return err
	}

	m.handle = handle
	m.opened.Store(true)
	m.refCount.Add(1)

	return nil
}

// Get returns the current value for key and whether it exists.
func (m *BoltMap) Get(key []byte) ([]byte, bool, error) {
	if !m.opened.Load() {
		return nil, false, ErrMapClosed
	}

	var (
		value []byte
		found bool
	)

	err := m.handle.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(m.bucket)
		if bucket == nil {
			return ErrBucketNotFound
		}

		if raw := bucket.Get(key); raw != nil {
			// Bolt memory is only valid inside the transaction; copy out.
			value = append([]byte(nil), raw...)
			found = true
		}

		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrMapReadFailed, err)
	}

	return value, found, nil
}

// MultiGet fetches several keys inside one read transaction. The result is
// positionally aligned with keys.
func (m *BoltMap) MultiGet(keys [][]byte) ([]Lookup, error) {
	if !m.opened.Load() {
		return nil, ErrMapClosed
	}

	results := make([]Lookup, len(keys))

	err := m.handle.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(m.bucket)
		if bucket == nil {
			return ErrBucketNotFound
		}

		for i, key := range keys {
			if raw := bucket.Get(key); raw != nil {
				results[i] = Lookup{
					Value: append([]byte(nil), raw...),
					Found: true,
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMapReadFailed, err)
	}

	return results, nil
}

// Insert stores value under key.
func (m *BoltMap) Insert(key, value []byte) error {
	if !m.opened.Load() {
		return ErrMapClosed
	}

	err := m.handle.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(m.bucket)
		if bucket == nil {
			return ErrBucketNotFound
		}

		return bucket.Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMapWriteFailed, err)
	}

	return nil
}

// MultiInsert stores all pairs in a single write transaction; Bolt rolls the
// transaction back on error, so the batch is all-or-nothing.
func (m *BoltMap) MultiInsert(pairs []BytePair) error {
	if !m.opened.Load() {
		return ErrMapClosed
	}

	err := m.handle.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(m.bucket)
		if bucket == nil {
			return ErrBucketNotFound
		}

		for _, p := range pairs {
			if putErr := bucket.Put(p.Key, p.Value); putErr != nil {
				return putErr
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMapWriteFailed, err)
	}

	return nil
}

// Remove deletes key. Deleting a missing key is a no-op.
func (m *BoltMap) Remove(key []byte) error {
	if !m.opened.Load() {
		return ErrMapClosed
	}

	err := m.handle.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(m.bucket)
		if bucket == nil {
			return ErrBucketNotFound
		}

		return bucket.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMapDeleteFailed, err)
	}

	return nil
}

// MultiRemove deletes all keys in a single write transaction.
func (m *BoltMap) MultiRemove(keys [][]byte) error {
	if !m.opened.Load() {
		return ErrMapClosed
	}

	err := m.handle.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(m.bucket)
		if bucket == nil {
			return ErrBucketNotFound
		}

		for _, key := range keys {
			if delErr := bucket.Delete(key); delErr != nil {
				return delErr
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMapDeleteFailed, err)
	}

	return nil
}

// Close decrements the refcount and closes the file when it reaches zero.
// Close without a matching Open is a no-op.
func (m *BoltMap) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.opened.Load() {
		return nil
	}

	if m.refCount.Add(-1) > 0 {
		return nil
	}

	m.opened.Store(false)

	err := m.handle.Close()
	m.handle = nil

	return err
}
