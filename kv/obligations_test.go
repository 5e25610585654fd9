package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestObligationTable_RegisterAndResolve verifies FIFO resolution order and
// the remove-on-empty behavior: a resolved key leaves the table entirely.
func TestObligationTable_RegisterAndResolve(t *testing.T) {
	t.Parallel()

	table := newObligationTable[string, int]()

	first := make(chan lookupResult[int], 1)
	second := make(chan lookupResult[int], 1)
	third := make(chan lookupResult[int], 1)

	table.register("k", first)
	table.register("k", second)
	table.register("k", third)

	require.Equal(t, 1, table.pending(), "three waiters on one key are one pending key")

	// Registration order must be preserved in the queue.
	queue := table.waiters["k"]
	require.Len(t, queue, 3)
	assert.True(t, queue[0] == (chan<- lookupResult[int])(first), "first registered waiter must be first in queue")
	assert.True(t, queue[1] == (chan<- lookupResult[int])(second))
	assert.True(t, queue[2] == (chan<- lookupResult[int])(third))

	woken := table.resolve("k", lookupResult[int]{value: 7, found: true})
	assert.Equal(t, 3, woken, "resolve must drain every waiter")
	assert.Equal(t, 0, table.pending(), "resolved key must be removed from the table")

	for _, reply := range []chan lookupResult[int]{first, second, third} {
		res := <-reply
		require.NoError(t, res.err)
		assert.True(t, res.found)
		assert.Equal(t, 7, res.value)
	}
}

// TestObligationTable_ResolveUnknownKey verifies resolving a key without
// waiters is a no-op.
func TestObligationTable_ResolveUnknownKey(t *testing.T) {
	t.Parallel()

	table := newObligationTable[string, int]()

	assert.Equal(t, 0, table.resolve("nobody-waits", lookupResult[int]{found: true}))
	assert.Equal(t, 0, table.pending())
}

// TestObligationTable_FailAll verifies shutdown delivery: every waiter on
// every key observes the error and the table ends up empty.
func TestObligationTable_FailAll(t *testing.T) {
	t.Parallel()

	table := newObligationTable[string, int]()

	a := make(chan lookupResult[int], 1)
	b := make(chan lookupResult[int], 1)

	table.register("a", a)
	table.register("b", b)

	table.failAll(ErrReplyLost)

	assert.Equal(t, 0, table.pending())

	for _, reply := range []chan lookupResult[int]{a, b} {
		res := <-reply
		require.ErrorIs(t, res.err, ErrReplyLost)
		assert.False(t, res.found)
	}
}
