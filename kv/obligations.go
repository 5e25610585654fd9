package kv

// obligationTable tracks pending NotifyRead waiters: for each key, the FIFO
// queue of reply channels expecting that key's next value.
//
// The table is worker-local state, mutated only from inside the worker's
// single-threaded processing loop, so it needs no synchronization. A key is
// present only while at least one waiter is unresolved for it; resolution
// always drains and removes the whole queue.
type obligationTable[K comparable, V any] struct {
	waiters map[K][]chan<- lookupResult[V]
}

func newObligationTable[K comparable, V any]() obligationTable[K, V] {
	return obligationTable[K, V]{
		waiters: make(map[K][]chan<- lookupResult[V]),
	}
}

// register appends reply to key's queue, creating the queue if needed.
func (t *obligationTable[K, V]) register(key K, reply chan<- lookupResult[V]) {
	t.waiters[key] = append(t.waiters[key], reply)
}

// resolve fulfills every waiter for key with result, in registration order,
// and removes the key from the table. Returns the number of waiters woken.
func (t *obligationTable[K, V]) resolve(key K, result lookupResult[V]) int {
	queue, ok := t.waiters[key]
	if !ok {
		return 0
	}

	delete(t.waiters, key)

	for _, reply := range queue {
		reply <- result
	}

	return len(queue)
}

// failAll fulfills every pending waiter with err and empties the table.
// Used at worker shutdown so no caller is left parked forever.
func (t *obligationTable[K, V]) failAll(err error) {
	for key, queue := range t.waiters {
		for _, reply := range queue {
			reply <- lookupResult[V]{err: err}
		}

		delete(t.waiters, key)
	}
}

// pending returns the number of keys with at least one unresolved waiter.
func (t *obligationTable[K, V]) pending() int {
	return len(t.waiters)
}
