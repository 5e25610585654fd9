package kv

import (
	"log/slog"

	"github.com/notifykv/notifykv/kv/store"
)

// worker is the single consumer of the command mailbox. It exclusively owns
// the backend map and the obligation table, so processing one command at a
// time gives every mutation a total order without any locking.
type worker[K comparable, V any] struct {
	backend     store.Map
	keys        Codec[K]
	values      Codec[V]
	obligations obligationTable[K, V]
	logger      *slog.Logger

	mailbox <-chan command[K, V]
	stop    <-chan struct{}
	done    chan<- struct{}
}

// run drains the mailbox until stopped. On exit, parked NotifyRead waiters
// are failed with ErrReplyLost and done is closed so blocked callers wake;
// the deferred cleanup also runs if a backend call panics.
func (w *worker[K, V]) run() {
	defer func() {
		pending := w.obligations.pending()
		w.obligations.failAll(ErrReplyLost)
		close(w.done)

		w.logger.Debug("kv worker stopped", "pending_waiter_keys", pending)
	}()

	w.logger.Debug("kv worker started")

	for {
		select {
		case cmd := <-w.mailbox:
			w.handle(cmd)
		case <-w.stop:
			return
		}
	}
}

// handle applies one command to the backend and the obligation table.
func (w *worker[K, V]) handle(cmd command[K, V]) {
	switch cmd.op {
	case opWrite:
		w.applyWrite(cmd)
	case opWriteAll:
		w.applyWriteAll(cmd)
	case opDelete:
		w.applyDelete(cmd)
	case opDeleteAll:
		w.applyDeleteAll(cmd)
	case opRead:
		cmd.lookup <- w.readOne(cmd.key)
	case opReadAll:
		cmd.lookupAll <- w.readMany(cmd.keys)
	case opNotifyRead:
		w.applyNotifyRead(cmd)
	}
}

func (w *worker[K, V]) applyWrite(cmd command[K, V]) {
	rawKey, err := w.keys.Encode(cmd.key)
	if err == nil {
		var rawValue []byte

		rawValue, err = w.values.Encode(cmd.value)
		if err == nil {
			err = w.backend.Insert(rawKey, rawValue)
		}
	}

	if err != nil {
		// Fire-and-forget: the caller chose not to observe outcomes.
		w.logger.Warn("dropping write error", "err", err)
	}

	// Waiters are woken with the written value on any outcome; only
	// WriteAll reports failures to its caller.
	w.obligations.resolve(cmd.key, lookupResult[V]{value: cmd.value, found: true})
}

func (w *worker[K, V]) applyWriteAll(cmd command[K, V]) {
	pairs := make([]store.BytePair, len(cmd.pairs))

	for i, p := range cmd.pairs {
		rawKey, err := w.keys.Encode(p.Key)
		if err != nil {
			cmd.ack <- err
			return
		}

		rawValue, err := w.values.Encode(p.Value)
		if err != nil {
			cmd.ack <- err
			return
		}

		pairs[i] = store.BytePair{Key: rawKey, Value: rawValue}
	}

	err := w.backend.MultiInsert(pairs)

	// Waiters are woken only when the whole batch landed, and with the
	// absent marker rather than the written value: batch waiters re-read.
	if err == nil {
		for _, p := range cmd.pairs {
			w.obligations.resolve(p.Key, lookupResult[V]{})
		}
	}

	cmd.ack <- err
}

func (w *worker[K, V]) applyDelete(cmd command[K, V]) {
	rawKey, err := w.keys.Encode(cmd.key)
	if err == nil {
		err = w.backend.Remove(rawKey)
	}

	if err != nil {
		w.logger.Warn("dropping delete error", "err", err)
	}

	// A delete satisfies pending waiters with the absent marker: the key's
	// state became known, even though no value exists.
	w.obligations.resolve(cmd.key, lookupResult[V]{})
}

func (w *worker[K, V]) applyDeleteAll(cmd command[K, V]) {
	rawKeys := make([][]byte, len(cmd.keys))

	for i, key := range cmd.keys {
		rawKey, err := w.keys.Encode(key)
		if err != nil {
			cmd.ack <- err
			return
		}

		rawKeys[i] = rawKey
	}

	err := w.backend.MultiRemove(rawKeys)

	if err == nil {
		for _, key := range cmd.keys {
			w.obligations.resolve(key, lookupResult[V]{})
		}
	}

	cmd.ack <- err
}

func (w *worker[K, V]) applyNotifyRead(cmd command[K, V]) {
	res := w.readOne(cmd.key)
	if res.err != nil || res.found {
		cmd.lookup <- res
		return
	}

	// Absent: park the caller until the next mutation touching the key.
	w.obligations.register(cmd.key, cmd.lookup)
}

// readOne is the shared lookup of Read and NotifyRead. Backend errors are
// returned verbatim.
func (w *worker[K, V]) readOne(key K) lookupResult[V] {
	rawKey, err := w.keys.Encode(key)
	if err != nil {
		return lookupResult[V]{err: err}
	}

	rawValue, found, err := w.backend.Get(rawKey)
	if err != nil {
		return lookupResult[V]{err: err}
	}

	if !found {
		return lookupResult[V]{}
	}

	value, err := w.values.Decode(rawValue)
	if err != nil {
		return lookupResult[V]{err: err}
	}

	return lookupResult[V]{value: value, found: true}
}

func (w *worker[K, V]) readMany(keys []K) readAllResult[V] {
	rawKeys := make([][]byte, len(keys))

	for i, key := range keys {
		rawKey, err := w.keys.Encode(key)
		if err != nil {
			return readAllResult[V]{err: err}
		}

		rawKeys[i] = rawKey
	}

	lookups, err := w.backend.MultiGet(rawKeys)
	if err != nil {
		return readAllResult[V]{err: err}
	}

	values := make([]Optional[V], len(lookups))

	for i, l := range lookups {
		if !l.Found {
			continue
		}

		value, decodeErr := w.values.Decode(l.Value)
		if decodeErr != nil {
			return readAllResult[V]{err: decodeErr}
		}

		values[i] = Optional[V]{Value: value, Ok: true}
	}

	return readAllResult[V]{values: values}
}
