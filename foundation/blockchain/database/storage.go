// Package database maintains the in-memory chain of blocks and the types
// that make up a block. Persistence is layered underneath the chain through
// the Storage interface.
package database

// Storage interface represents the behavior required to be implemented by
// any package providing support for persisting and reading back blocks.
type Storage interface {
	Write(blockData BlockData) error
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by
// any package providing support to iterate over persisted blocks in the
// order they were written. Insertion order guarantees a parent is always
// replayed before its children.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}
