package kv

// Pair couples a key with the value to store under it, for batch writes.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

// Optional holds a value that may be absent. Ok is false when the key had no
// value.
type Optional[V any] struct {
	Value V
	Ok    bool
}

// commandOp tags the closed set of operations the worker understands.
type commandOp uint8

const (
	opWrite commandOp = iota
	opWriteAll
	opDelete
	opDeleteAll
	opRead
	opReadAll
	opNotifyRead
)

// lookupResult is the reply payload of Read and NotifyRead: the value, a
// found flag, and any backend error.
type lookupResult[V any] struct {
	value V
	found bool
	err   error
}

// readAllResult is the reply payload of ReadAll: one Optional per requested
// key, positionally aligned, or a backend error.
type readAllResult[V any] struct {
	values []Optional[V]
	err    error
}

// command is a single request to the worker. Exactly one of the reply
// channels is set, depending on op; Write and Delete carry none
// (fire-and-forget). Reply channels are buffered with capacity 1 so the
// worker's send never blocks, even when the caller has already given up:
// fulfilling an abandoned reply is a no-op.
type command[K comparable, V any] struct {
	op    commandOp
	key   K
	value V
	pairs []Pair[K, V]
	keys  []K

	// ack carries the outcome of WriteAll and DeleteAll.
	ack chan<- error
	// lookup carries the outcome of Read and NotifyRead.
	lookup chan<- lookupResult[V]
	// lookupAll carries the outcome of ReadAll.
	lookupAll chan<- readAllResult[V]
}
