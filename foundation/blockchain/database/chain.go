package database

import (
	"errors"
	"fmt"

	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// ErrUnknownParent is returned from Insert when a block names a parent the
// chain has never seen. Callers must guarantee parent presence before
// inserting, so hitting this error indicates a broken caller contract.
var ErrUnknownParent = errors.New("parent block not in chain")

// Chain is the in-memory store of every known block along with a height
// index and the current tip of the longest chain seen so far.
//
// A Chain carries no lock of its own. Every read and write must happen under
// the single exclusive chain lock owned by the state package.
type Chain struct {
	blockMap map[signature.Hash]Block
	heights  map[signature.Hash]uint64
	tip      signature.Hash
}

// NewChain constructs a chain containing only the specified genesis block.
func NewChain(genesisBlock Block) *Chain {
	genesisHash := genesisBlock.Hash()

	return &Chain{
		blockMap: map[signature.Hash]Block{genesisHash: genesisBlock},
		heights:  map[signature.Hash]uint64{genesisHash: 0},
		tip:      genesisHash,
	}
}

// Insert stores the block and indexes its height as one more than its
// parent's. No validation happens here: callers validate before inserting.
// The tip advances only when the new height strictly exceeds the current
// tip's height, so the first block seen at a given height wins ties.
func (c *Chain) Insert(block Block) error {
	parentHeight, exists := c.heights[block.Header.Parent]
	if !exists {
		return fmt.Errorf("inserting block %s: %w", block.Hash(), ErrUnknownParent)
	}

	hash := block.Hash()
	height := parentHeight + 1

	c.blockMap[hash] = block
	c.heights[hash] = height

	if height > c.heights[c.tip] {
		c.tip = hash
	}

	return nil
}

// Tip returns the hash of the last block of the longest chain.
func (c *Chain) Tip() signature.Hash {
	return c.tip
}

// TipBlock returns the last block of the longest chain.
func (c *Chain) TipBlock() Block {
	return c.blockMap[c.tip]
}

// Knows reports whether a block with the specified hash has been inserted.
func (c *Chain) Knows(hash signature.Hash) bool {
	_, exists := c.blockMap[hash]
	return exists
}

// Block returns the block with the specified hash.
func (c *Chain) Block(hash signature.Hash) (Block, bool) {
	block, exists := c.blockMap[hash]
	return block, exists
}

// Height returns the height recorded for the specified block hash.
func (c *Chain) Height(hash signature.Hash) (uint64, bool) {
	height, exists := c.heights[hash]
	return height, exists
}

// Len returns the total number of blocks stored, across all forks.
func (c *Chain) Len() int {
	return len(c.blockMap)
}

// LongestChain returns the hashes of the longest chain, ordered from the
// genesis block to the tip.
func (c *Chain) LongestChain() []signature.Hash {
	sentinel := SentinelParent()

	var list []signature.Hash
	for current := c.tip; current != sentinel; current = c.blockMap[current].Header.Parent {
		list = append(list, current)
	}

	// Walked tip first, flip to genesis first.
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}

	return list
}
