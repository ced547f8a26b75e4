package storage

import (
	"github.com/pullchain/pullchain/foundation/blockchain/database"
)

// Memory represents the storage implementation for keeping blocks only in
// memory. Used by tests and by nodes running without a database path.
type Memory struct {
	blocks []database.BlockData
}

// NewMemory constructs an empty in-memory block store.
func NewMemory() *Memory {
	return &Memory{}
}

// Close has nothing to release.
func (m *Memory) Close() error {
	return nil
}

// Write appends the specified block to the in-memory chain.
func (m *Memory) Write(blockData database.BlockData) error {
	m.blocks = append(m.blocks, blockData)
	return nil
}

// ForEach returns an iterator to walk through all the blocks in the order
// they were written.
func (m *Memory) ForEach() database.Iterator {
	return &MemoryIterator{memory: m}
}

// Reset clears the in-memory chain.
func (m *Memory) Reset() error {
	m.blocks = nil
	return nil
}

// =============================================================================

// MemoryIterator represents the iteration implementation for walking through
// the blocks held in memory. This implements the database.Iterator interface.
type MemoryIterator struct {
	memory  *Memory
	current int
	eoc     bool
}

// Next retrieves the next block from memory.
func (mi *MemoryIterator) Next() (database.BlockData, error) {
	if mi.current >= len(mi.memory.blocks) {
		mi.eoc = true
		return database.BlockData{}, ErrEndOfChain
	}

	blockData := mi.memory.blocks[mi.current]
	mi.current++

	return blockData, nil
}

// Done returns the end of chain value.
func (mi *MemoryIterator) Done() bool {
	return mi.eoc
}
