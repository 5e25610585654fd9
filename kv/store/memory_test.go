package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewMemoryMap verifies shard allocation and the power-of-two rounding of
// the shard count.
func TestNewMemoryMap(t *testing.T) {
	t.Parallel()

	m := NewMemoryMap(0)
	require.NotNil(t, m, "NewMemoryMap() must not return nil")
	assert.Len(t, m.shards, DefaultShardCount, "zero count must select the default")

	m = NewMemoryMap(10)
	assert.Len(t, m.shards, 16, "non-power-of-two counts must round up")

	m = NewMemoryMap(1)
	assert.Len(t, m.shards, 1, "a single shard is allowed")
}

// TestMemoryMap_GetInsertRemove validates the single-key roundtrip: a missing
// key is not an error, Insert -> Get round-trips, Remove is idempotent.
func TestMemoryMap_GetInsertRemove(t *testing.T) {
	t.Parallel()

	m := NewMemoryMap(4)
	require.NoError(t, m.Open())

	// Missing key: found == false, no error.
	_, found, err := m.Get([]byte("missing"))
	require.NoError(t, err, "Get of a missing key must not error")
	assert.False(t, found)

	require.NoError(t, m.Insert([]byte("k"), []byte("v")))

	value, found, err := m.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v"), value)

	// Overwrite.
	require.NoError(t, m.Insert([]byte("k"), []byte("v2")))

	value, found, err = m.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v2"), value)

	// Remove, then remove again: both must succeed.
	require.NoError(t, m.Remove([]byte("k")))
	require.NoError(t, m.Remove([]byte("k")), "removing a missing key must be a no-op")

	_, found, err = m.Get([]byte("k"))
	require.NoError(t, err)
	assert.False(t, found, "removed key must be absent")
}

// TestMemoryMap_ValueOwnership verifies that stored and returned values are
// copies, so callers cannot mutate the map's internals.
func TestMemoryMap_ValueOwnership(t *testing.T) {
	t.Parallel()

	m := NewMemoryMap(2)

	original := []byte("value")
	require.NoError(t, m.Insert([]byte("k"), original))

	// Mutating the caller's buffer must not affect the stored value.
	original[0] = 'X'

	stored, found, err := m.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("value"), stored)

	// Mutating the returned buffer must not affect subsequent reads.
	stored[0] = 'Y'

	again, _, err := m.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), again)
}

// TestMemoryMap_MultiGet_Positional verifies positional alignment of batched
// reads, including absent keys in the middle of the batch.
func TestMemoryMap_MultiGet_Positional(t *testing.T) {
	t.Parallel()

	m := NewMemoryMap(4)

	require.NoError(t, m.Insert([]byte("a"), []byte("1")))
	require.NoError(t, m.Insert([]byte("c"), []byte("3")))

	results, err := m.MultiGet([][]byte{[]byte("a"), []byte("b"), []byte("c")})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Found)
	assert.Equal(t, []byte("1"), results[0].Value)
	assert.False(t, results[1].Found, "absent key must be Found == false, not an error")
	assert.True(t, results[2].Found)
	assert.Equal(t, []byte("3"), results[2].Value)
}

// TestMemoryMap_MultiInsertMultiRemove exercises batch mutations, including
// duplicate keys inside one batch (last occurrence wins).
func TestMemoryMap_MultiInsertMultiRemove(t *testing.T) {
	t.Parallel()

	m := NewMemoryMap(4)

	require.NoError(t, m.MultiInsert([]BytePair{
		{Key: []byte("x"), Value: []byte("1")},
		{Key: []byte("y"), Value: []byte("2")},
		{Key: []byte("x"), Value: []byte("override")},
	}))

	value, found, err := m.Get([]byte("x"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("override"), value, "last occurrence of a duplicated key must win")

	assert.EqualValues(t, 2, m.Size())

	require.NoError(t, m.MultiRemove([][]byte{[]byte("x"), []byte("y"), []byte("never-existed")}))
	assert.EqualValues(t, 0, m.Size())
}

// TestMemoryMap_Concurrency runs concurrent single and batch mutations to
// smoke-test shard locking. Passing under -race without deadlock is the
// assertion.
func TestMemoryMap_Concurrency(t *testing.T) {
	t.Parallel()

	m := NewMemoryMap(8)

	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		g := g

		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("key-%d-%d", g, i)

				_ = m.Insert([]byte(key), []byte("v"))
				_, _, _ = m.Get([]byte(key))
				_ = m.MultiInsert([]BytePair{
					{Key: []byte(key + "-a"), Value: []byte("1")},
					{Key: []byte(key + "-b"), Value: []byte("2")},
				})
				_ = m.MultiRemove([][]byte{[]byte(key + "-a"), []byte(key)})
			}
		}()
	}

	wg.Wait()
}
