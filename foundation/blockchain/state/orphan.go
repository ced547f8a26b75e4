package state

import (
	"sync"

	"github.com/pullchain/pullchain/foundation/blockchain/database"
	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// OrphanBuffer holds blocks whose parent has not arrived yet, keyed by the
// hash of the missing parent. One slot per parent: a later orphan waiting
// on the same parent replaces the earlier one.
type OrphanBuffer struct {
	mu      sync.Mutex
	orphans map[signature.Hash]database.Block
}

// NewOrphanBuffer constructs an empty orphan buffer.
func NewOrphanBuffer() *OrphanBuffer {
	return &OrphanBuffer{
		orphans: make(map[signature.Hash]database.Block),
	}
}

// Put parks a block under the hash of its missing parent. It reports
// whether an earlier orphan was replaced.
func (ob *OrphanBuffer) Put(parent signature.Hash, block database.Block) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	_, replaced := ob.orphans[parent]
	ob.orphans[parent] = block

	return replaced
}

// Take removes and returns the block waiting on the specified parent.
func (ob *OrphanBuffer) Take(parent signature.Hash) (database.Block, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	block, exists := ob.orphans[parent]
	if exists {
		delete(ob.orphans, parent)
	}

	return block, exists
}

// Len returns the number of blocks currently waiting on a parent.
func (ob *OrphanBuffer) Len() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	return len(ob.orphans)
}
