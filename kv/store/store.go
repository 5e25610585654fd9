package store

// BytePair couples a raw key with the raw value to store under it.
type BytePair struct {
	Key   []byte
	Value []byte
}

// Lookup is the outcome of fetching a single key: the raw value and whether
// the key was present. A missing key is not an error.
type Lookup struct {
	Value []byte
	Found bool
}

// Map defines the operations of a persistent key-value backend.
//
// General notes:
//
//   - Keys and values are raw bytes. Encoding of rich types is handled by a
//     higher layer (see the kv package codecs).
//   - Returned values are owned copies; callers may mutate them freely.
//   - Get on a missing key returns Found == false and a nil error.
//   - Remove of a missing key is a no-op, not an error.
//
// Error semantics:
//
//   - Methods return a non-nil error only in exceptional conditions (I/O
//     errors, transaction failures, use after Close).
//   - MultiInsert and MultiRemove MUST be all-or-nothing: on error, no key
//     from the batch has been mutated.
type Map interface {
	// Open ensures the backend is ready to accept operations by initializing
	// any deferred resources (file handles, database directories, etc.).
	// It SHOULD be safe to call Open multiple times.
	Open() error

	// Get returns the current value stored under key and whether it exists.
	Get(key []byte) (value []byte, found bool, err error)

	// MultiGet fetches several keys at once. The result is positionally
	// aligned with keys; absent keys yield Lookup{Found: false}.
	MultiGet(keys [][]byte) ([]Lookup, error)

	// Insert stores value under key, overwriting any existing value.
	Insert(key, value []byte) error

	// MultiInsert atomically stores all pairs. Pairs are applied in slice
	// order, so a duplicated key ends up with its last value.
	MultiInsert(pairs []BytePair) error

	// Remove deletes key from the backend.
	Remove(key []byte) error

	// MultiRemove atomically deletes all keys.
	MultiRemove(keys [][]byte) error

	// Close releases resources associated with the backend.
	Close() error
}
