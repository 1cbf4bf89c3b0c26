// Package storemap implements the StoreMap external-collaborator contract:
// an opaque persistent mapping string -> list-of-values. The core
// (encstore, superstore, theo1, theo2) only ever consumes this interface;
// this package supplies the two concrete backends the rest of the tree
// needs to actually run: an in-memory map (used whenever a layer is opened
// against location "/") and an append-log disk store grounded on
// gholt-valuestore's TOC-file/recovery design.
package storemap

import "github.com/gholt/theo2012/value"

// StoreMap is the persistent-map contract every layer above it depends on.
// Thread-safe reads when opened read-only; writes are expected to be
// single-threaded by the caller.
type StoreMap interface {
	Open(location string, readOnly bool) error
	Close() error
	Flush(sync bool) error
	Copy(location string) (StoreMap, error)
	IsReadOnly() bool

	Get(key string) ([]value.Value, bool)
	Put(key string, values []value.Value) error
	Remove(key string) error
	Size() int
	// Keys returns a snapshot of all keys currently stored. Snapshotting
	// (rather than a live iterator) keeps the "one active iterator"
	// contract entirely in encstore.
	Keys() []string

	// Generation increases every time the key set changes shape (a Put of
	// a previously-absent key, or a Remove). encstore keeps its own change
	// counter for iterator staleness and does not read this one.
	Generation() uint64
}
