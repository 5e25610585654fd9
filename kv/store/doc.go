// Package store provides the pluggable, byte-level backend maps coordinated
// by the kv package. It defines the Map interface and common data structures
// shared by the memory-, BoltDB- and Badger-backed implementations.
//
// Implementations SHOULD be safe for concurrent use by multiple goroutines,
// even though the kv worker accesses them from a single goroutine: backends
// are reusable outside the serializing layer.
//
// Batch semantics: MultiInsert and MultiRemove are atomic (all-or-nothing).
// MultiGet is positional: the i-th Lookup in the result corresponds to the
// i-th requested key.
package store
