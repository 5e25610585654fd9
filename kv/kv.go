package kv

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/notifykv/notifykv/kv/store"
)

// DefaultMailboxCapacity is the bound on the worker's command queue unless
// overridden via Options. Producers block once the queue is full, which
// provides natural admission control against a slow backend.
const DefaultMailboxCapacity = 100

// Options tunes a Store at construction time.
type Options struct {
	// MailboxCapacity bounds the command queue between handles and the
	// worker. Zero or negative selects DefaultMailboxCapacity.
	MailboxCapacity int

	// Logger receives worker lifecycle events and backend errors swallowed
	// on fire-and-forget paths. Nil selects slog.Default().
	Logger *slog.Logger
}

// Store is the caller-facing handle of the serializing layer. All methods
// are safe for concurrent use; handles are shared by passing the *Store
// around. The Store does not take ownership of the backend map: the caller
// remains responsible for closing it after Close returns.
type Store[K comparable, V any] struct {
	mailbox chan command[K, V]

	// stop asks the worker to exit; done is closed once it has.
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Store over the given backend with default options and starts
// its worker goroutine. Key encoding must be deterministic (see Codec).
func New[K comparable, V any](backend store.Map, keys Codec[K], values Codec[V]) *Store[K, V] {
	return NewWithOptions(backend, keys, values, Options{})
}

// NewWithOptions is New with explicit Options.
func NewWithOptions[K comparable, V any](
	backend store.Map,
	keys Codec[K],
	values Codec[V],
	opts Options,
) *Store[K, V] {
	capacity := opts.MailboxCapacity
	if capacity <= 0 {
		capacity = DefaultMailboxCapacity
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store[K, V]{
		mailbox: make(chan command[K, V], capacity),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	w := &worker[K, V]{
		backend:     backend,
		keys:        keys,
		values:      values,
		obligations: newObligationTable[K, V](),
		logger:      logger,
		mailbox:     s.mailbox,
		stop:        s.stop,
		done:        s.done,
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		w.run()
	}()

	return s
}

// Close stops the worker and waits for it to exit. Commands still queued in
// the mailbox are not processed; their callers observe ErrReplyLost, and
// parked NotifyRead waiters are failed the same way. Close is idempotent.
func (s *Store[K, V]) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})

	s.wg.Wait()
}

// Write stores value under key, fire-and-forget: it returns once the command
// is accepted into the queue, not once applied, and any backend failure is
// logged and dropped. Use WriteAll to observe the outcome.
func (s *Store[K, V]) Write(ctx context.Context, key K, value V) error {
	return s.send(ctx, command[K, V]{op: opWrite, key: key, value: value})
}

// WriteAll atomically stores all pairs and waits for the outcome: either
// every pair is written, or none is and the backend error is returned.
// Duplicate keys are applied in slice order, so the last occurrence wins.
//
// A successful batch wakes NotifyRead waiters of the written keys with the
// absent marker rather than the written value; a waiter woken this way must
// issue a Read to see it.
func (s *Store[K, V]) WriteAll(ctx context.Context, pairs []Pair[K, V]) error {
	ack := make(chan error, 1)

	err := s.send(ctx, command[K, V]{op: opWriteAll, pairs: slices.Clone(pairs), ack: ack})
	if err != nil {
		return err
	}

	return s.awaitAck(ctx, ack)
}

// Remove deletes key, fire-and-forget, with the same acceptance semantics as
// Write. A delete wakes pending NotifyRead waiters for the key with the
// absent marker.
func (s *Store[K, V]) Remove(ctx context.Context, key K) error {
	return s.send(ctx, command[K, V]{op: opDelete, key: key})
}

// RemoveAll atomically deletes all keys and waits for the outcome. Only a
// successful batch wakes NotifyRead waiters (with the absent marker).
func (s *Store[K, V]) RemoveAll(ctx context.Context, keys []K) error {
	ack := make(chan error, 1)

	err := s.send(ctx, command[K, V]{op: opDeleteAll, keys: slices.Clone(keys), ack: ack})
	if err != nil {
		return err
	}

	return s.awaitAck(ctx, ack)
}

// Read returns the current value for key and whether it exists. It never
// registers a waiter.
func (s *Store[K, V]) Read(ctx context.Context, key K) (V, bool, error) {
	reply := make(chan lookupResult[V], 1)

	if err := s.send(ctx, command[K, V]{op: opRead, key: key, lookup: reply}); err != nil {
		var zero V
		return zero, false, err
	}

	return s.awaitLookup(ctx, reply)
}

// ReadAll fetches the values of all keys. The result is positionally aligned
// with keys; absent keys yield Optional{Ok: false}, not an error.
func (s *Store[K, V]) ReadAll(ctx context.Context, keys []K) ([]Optional[V], error) {
	reply := make(chan readAllResult[V], 1)

	if err := s.send(ctx, command[K, V]{op: opReadAll, keys: slices.Clone(keys), lookupAll: reply}); err != nil {
		return nil, err
	}

	select {
	case res := <-reply:
		return res.values, res.err
	case <-s.done:
		// The worker may have replied in the same instant it exited.
		select {
		case res := <-reply:
			return res.values, res.err
		default:
			return nil, ErrReplyLost
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// NotifyRead returns the value for key, waiting if necessary: if the key
// holds a value it is returned immediately; otherwise the call blocks until
// the next successful mutation touching the key, or until the backend lookup
// fails, the context is done, or the store closes.
//
// Note that a Remove (or a batch mutation) can be the waking mutation, in
// which case NotifyRead returns with ok == false.
func (s *Store[K, V]) NotifyRead(ctx context.Context, key K) (V, bool, error) {
	reply := make(chan lookupResult[V], 1)

	if err := s.send(ctx, command[K, V]{op: opNotifyRead, key: key, lookup: reply}); err != nil {
		var zero V
		return zero, false, err
	}

	return s.awaitLookup(ctx, reply)
}

// send enqueues a command, blocking while the mailbox is full. It fails with
// ErrStoreClosed once the worker has stopped and with ctx.Err() when the
// caller gives up first.
func (s *Store[K, V]) send(ctx context.Context, cmd command[K, V]) error {
	// Prefer the closed-store error when both are ready: the mailbox may
	// still have spare capacity after the worker exited.
	select {
	case <-s.done:
		return ErrStoreClosed
	default:
	}

	select {
	case s.mailbox <- cmd:
		return nil
	case <-s.done:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// awaitAck waits for a batch outcome.
func (s *Store[K, V]) awaitAck(ctx context.Context, ack <-chan error) error {
	select {
	case err := <-ack:
		return err
	case <-s.done:
		// The worker may have replied in the same instant it exited.
		select {
		case err := <-ack:
			return err
		default:
			return ErrReplyLost
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// awaitLookup waits for a single-key outcome.
func (s *Store[K, V]) awaitLookup(ctx context.Context, reply <-chan lookupResult[V]) (V, bool, error) {
	select {
	case res := <-reply:
		return res.value, res.found, res.err
	case <-s.done:
		select {
		case res := <-reply:
			return res.value, res.found, res.err
		default:
			var zero V
			return zero, false, ErrReplyLost
		}
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}
}
