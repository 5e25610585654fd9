// Package kv provides a serializing notification layer over a pluggable
// persistent backend map.
//
// High-level behavior:
//   - Every Store operation becomes a command on a bounded mailbox drained
//     by exactly one worker goroutine, so all mutations are applied to the
//     backend in one total order without locks around backend state.
//   - NotifyRead blocks until the requested key receives a value: if the key
//     already exists the value is returned immediately, otherwise the caller
//     is parked in a per-key FIFO queue and woken by the next successful
//     mutation touching the key.
//   - Write and Remove are fire-and-forget: they return once the command is
//     accepted and never surface backend errors. Callers that need the
//     outcome must use WriteAll/RemoveAll, which wait for the worker's reply.
//
// Typed keys and values are converted to backend bytes by codecs; see Codec,
// JSONCodec, StringCodec and BytesCodec.
package kv
