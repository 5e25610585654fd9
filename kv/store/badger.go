package store

import (
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerMap is a persistent backend map backed by Badger.
//
// Batch mutations run in a single Update transaction, so MultiInsert and
// MultiRemove are all-or-nothing. An empty path opens Badger in in-memory
// mode, which is handy for tests and ephemeral stores.
type BadgerMap struct {
	path   string
	db     *badger.DB
	lock   sync.Mutex // Serializes open/close transitions
	opened bool
}

// NewBadgerMap constructs a BadgerMap rooted at the given directory.
// An empty path selects Badger's in-memory mode.
func NewBadgerMap(path string) *BadgerMap {
	return &BadgerMap{path: path}
}

// Open opens the Badger database. Calling Open on an already open map is a
// no-op.
func (m *BadgerMap) Open() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.opened {
		return nil
	}

	opts := badger.DefaultOptions(m.path)
	if m.path == "" {
		opts = opts.WithInMemory(true)
	}

	// Badger's default logger writes to stderr; the surrounding system owns
	// logging, so keep the backend quiet.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMapOpenFailed, err)
	}

	m.db = db
	m.opened = true

	return nil
}

// Get returns the current value for key and whether it exists.
func (m *BadgerMap) Get(key []byte) ([]byte, bool, error) {
	if !m.isOpen() {
		return nil, false, ErrMapClosed
	}

	var (
		value []byte
		found bool
	)

	err := m.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get(key)
		if errors.Is(getErr, badger.ErrKeyNotFound) {
			return nil
		}

		if getErr != nil {
			return getErr
		}

		found = true

		value, getErr = item.ValueCopy(nil)

		return getErr
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrMapReadFailed, err)
	}

	return value, found, nil
}

// MultiGet fetches several keys inside one read transaction, positionally
// aligned with keys.
func (m *BadgerMap) MultiGet(keys [][]byte) ([]Lookup, error) {
	if !m.isOpen() {
		return nil, ErrMapClosed
	}

	results := make([]Lookup, len(keys))

	err := m.db.View(func(txn *badger.Txn) error {
		for i, key := range keys {
			item, getErr := txn.Get(key)
			if errors.Is(getErr, badger.ErrKeyNotFound) {
				continue
			}

			if getErr != nil {
				return getErr
			}

			value, copyErr := item.ValueCopy(nil)
			if copyErr != nil {
				return copyErr
			}

			results[i] = Lookup{Value: value, Found: true}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMapReadFailed, err)
	}

	return results, nil
}

// Insert stores value under key.
func (m *BadgerMap) Insert(key, value []byte) error {
	if !m.isOpen() {
		return ErrMapClosed
	}

	err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMapWriteFailed, err)
	}

	return nil
}

// MultiInsert stores all pairs in one transaction; Badger discards the
// transaction on error, so the batch is all-or-nothing.
func (m *BadgerMap) MultiInsert(pairs []BytePair) error {
	if !m.isOpen() {
		return ErrMapClosed
	}

	err := m.db.Update(func(txn *badger.Txn) error {
		for _, p := range pairs {
			if setErr := txn.Set(p.Key, p.Value); setErr != nil {
				return setErr
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
func (m *BadgerMap) Remove(key []byte) error {
	if !m.isOpen() {
		return ErrMapClosed
	}

	err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMapDeleteFailed, err)
	}

	return nil
}

// MultiRemove deletes all keys in one transaction.
func (m *BadgerMap) MultiRemove(keys [][]byte) error {
	if !m.isOpen() {
		return ErrMapClosed
	}

	err := m.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if delErr := txn.Delete(key); delErr != nil {
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

// Close closes the database. Close without Open is a no-op.
func (m *BadgerMap) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.opened {
		return nil
	}

	m.opened = false

	err := m.db.Close()
	m.db = nil

	return err
}

func (m *BadgerMap) isOpen() bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.opened
}
