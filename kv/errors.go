package kv

import "errors"

var (
	// ErrStoreClosed is returned when a command cannot be accepted because
	// the store's worker goroutine has stopped. This is a fatal lifecycle
	// condition for the store instance, not a transient failure: a handle
	// that observes it will never succeed again.
	ErrStoreClosed = errors.New("store is closed")

	// ErrReplyLost is returned when the worker stopped after accepting a
	// command but before delivering its reply, or while a NotifyRead waiter
	// was still parked. It is distinct from both ErrStoreClosed and a
	// successful-but-absent result.
	ErrReplyLost = errors.New("store stopped before replying")
)
