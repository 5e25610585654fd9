package store

import (
	"sort"
	"sync"

	xxhash "github.com/cespare/xxhash/v2"
)

// DefaultShardCount is the number of shards a MemoryMap uses unless told
// otherwise. Power of two so the shard index is a cheap mask.
const DefaultShardCount = 16

// memoryShard holds the data of a single shard.
type memoryShard struct {
	// mu protects container.
	mu sync.RWMutex
	// container is the map of key-value pairs owned by this shard.
	container map[string][]byte
}

// MemoryMap is an in-memory, sharded backend map.
//
// Keys are distributed over shards by xxhash, which keeps the distribution
// uniform at negligible cost (a plain byte-sum collapses anagram keys onto
// the same shard and skews badly as the keyspace grows).
//
// Concurrency:
//   - Single-key operations lock only the owning shard.
//   - Batch operations lock every involved shard in ascending index order
//     for the whole batch, which yields all-or-nothing visibility and avoids
//     lock-order deadlocks between concurrent batches.
type MemoryMap struct {
	shards []*memoryShard
	mask   uint64
}

// NewMemoryMap creates a MemoryMap with the given shard count. Counts that
// are not powers of two are rounded up; zero or negative counts fall back to
// DefaultShardCount.
func NewMemoryMap(shardCount int) *MemoryMap {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}

	// Round up to the next power of two so (hash & mask) is a valid index.
	n := 1
	for n < shardCount {
		n <<= 1
	}

	shards := make([]*memoryShard, n)
	for i := range shards {
		shards[i] = &memoryShard{container: make(map[string][]byte)}
	}

	return &MemoryMap{
		shards: shards,
		mask:   uint64(n - 1),
	}
}

// Open is a no-op for MemoryMap and always returns nil.
func (m *MemoryMap) Open() error {
	return nil
}

// Get returns the current value for key and whether it exists.
func (m *MemoryMap) Get(key []byte) ([]byte, bool, error) {
	shard := m.shardFor(key)

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	value, ok := shard.container[string(key)]
	if !ok {
		return nil, false, nil
	}

	// Return a copy so callers can't mutate internal storage.
	return append([]byte(nil), value...), true, nil
}

// MultiGet fetches several keys under a consistent snapshot: every involved
// shard is read-locked for the duration of the batch.
func (m *MemoryMap) MultiGet(keys [][]byte) ([]Lookup, error) {
	indexes := m.shardIndexes(keys)
	for _, i := range indexes {
		m.shards[i].mu.RLock()
	}

	defer func() {
		for _, i := range indexes {
			m.shards[i].mu.RUnlock()
		}
	}()

	results := make([]Lookup, len(keys))

	for i, key := range keys {
		value, ok := m.shardFor(key).container[string(key)]
		if !ok {
			continue
		}

		results[i] = Lookup{
			Value: append([]byte(nil), value...),
			Found: true,
		}
	}

	return results, nil
}

// Insert associates value with key, overwriting any previous value.
func (m *MemoryMap) Insert(key, value []byte) error {
	shard := m.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.container[string(key)] = append([]byte(nil), value...)

	return nil
}

// MultiInsert stores all pairs while holding every involved shard lock, so
// concurrent readers observe either none or all of the batch. Pairs are
// applied in slice order; a duplicated key keeps its last value.
func (m *MemoryMap) MultiInsert(pairs []BytePair) error {
	keys := make([][]byte, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key
	}

	indexes := m.shardIndexes(keys)
	for _, i := range indexes {
		m.shards[i].mu.Lock()
	}

	defer func() {
		for _, i := range indexes {
			m.shards[i].mu.Unlock()
		}
	}()

	for _, p := range pairs {
		m.shardFor(p.Key).container[string(p.Key)] = append([]byte(nil), p.Value...)
	}

	return nil
}

// Remove deletes key if present. It is not an error if the key does not exist.
func (m *MemoryMap) Remove(key []byte) error {
	shard := m.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.container, string(key))

	return nil
}

// MultiRemove deletes all keys while holding every involved shard lock.
func (m *MemoryMap) MultiRemove(keys [][]byte) error {
	indexes := m.shardIndexes(keys)
	for _, i := range indexes {
		m.shards[i].mu.Lock()
	}

	defer func() {
		for _, i := range indexes {
			m.shards[i].mu.Unlock()
		}
	}()

	for _, key := range keys {
		delete(m.shardFor(key).container, string(key))
	}

	return nil
}

// Size returns the total number of keys across all shards.
func (m *MemoryMap) Size() int64 {
	var total int64

	for _, shard := range m.shards {
		shard.mu.RLock()
		total += int64(len(shard.container))
		shard.mu.RUnlock()
	}

	return total
}

// Close is a no-op for MemoryMap and always returns nil.
func (m *MemoryMap) Close() error {
	return nil
}

// shardFor returns the shard owning key.
func (m *MemoryMap) shardFor(key []byte) *memoryShard {
	return m.shards[xxhash.Sum64(key)&m.mask]
}

// shardIndexes returns the deduplicated, ascending shard indexes involved in
// a batch. Locking in this order prevents deadlock between concurrent batches.
func (m *MemoryMap) shardIndexes(keys [][]byte) []int {
	seen := make(map[int]struct{}, len(keys))

	indexes := make([]int, 0, len(keys))
	for _, key := range keys {
		i := int(xxhash.Sum64(key) & m.mask)
		if _, ok := seen[i]; ok {
			continue
		}

		seen[i] = struct{}{}
		indexes = append(indexes, i)
	}

	sort.Ints(indexes)

	return indexes
}
