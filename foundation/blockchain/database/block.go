package database

import (
	"fmt"

	"github.com/pullchain/pullchain/foundation/blockchain/genesis"
	"github.com/pullchain/pullchain/foundation/blockchain/merkle"
	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// BlockHeader represents common information required for each block. The
// header alone identifies a block: the transaction set is committed to via
// the TransRoot field, not hashed directly.
type BlockHeader struct {
	Parent     signature.Hash `json:"parent"`     // Bitcoin: Hash of the previous block in the chain.
	Nonce      uint32         `json:"nonce"`      // Bitcoin: Value chosen when the candidate block was assembled.
	Difficulty signature.Hash `json:"difficulty"` // Threshold the block hash must not exceed. Fixed at genesis.
	TimeStamp  uint32         `json:"timestamp"`  // Bitcoin: Time the block was assembled.
	TransRoot  signature.Hash `json:"trans_root"` // The merkle tree root hash for the transactions in this block.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  []SignedTx
}

// Hash returns the unique hash for the block.
func (b Block) Hash() signature.Hash {

	// CORE NOTE: Hashing the block header and not the whole block so the
	// blockchain can be cryptographically checked by only needing block
	// headers and not full blocks with the transaction data.

	return signature.HashOf(b.Header)
}

// ValidateBlock checks a block received from a peer can be included into the
// blockchain on top of the specified parent block.
func (b Block) ValidateBlock(parent Block) error {

	// The difficulty never changes from genesis, so a valid block carries
	// its parent's difficulty.
	if b.Header.Difficulty != parent.Header.Difficulty {
		return fmt.Errorf("difficulty mismatch, parent %s, block %s", parent.Header.Difficulty, b.Header.Difficulty)
	}

	hash := b.Hash()
	if !IsHashSolved(b.Header.Difficulty, hash) {
		return fmt.Errorf("%s does not satisfy the difficulty", hash)
	}

	if root := merkle.NewTree(b.Trans).Root(); root != b.Header.TransRoot {
		return fmt.Errorf("merkle root does not match transactions, got %s, exp %s", root, b.Header.TransRoot)
	}

	return nil
}

// IsHashSolved checks the hash to make sure it complies with the POW rules.
// A hash satisfies a difficulty when it does not exceed it. Smaller
// difficulty values represent harder targets.
func IsHashSolved(difficulty signature.Hash, hash signature.Hash) bool {
	return hash.Compare(difficulty) <= 0
}

// SentinelParent returns the well known parent hash carried by the genesis
// block. It is never the hash of a real block.
func SentinelParent() signature.Hash {
	var h signature.Hash
	for i := range h {
		h[i] = 0xFF
	}

	return h
}

// GenesisBlock constructs the one block every node starts its chain with.
func GenesisBlock(gen genesis.Genesis) Block {
	return Block{
		Header: BlockHeader{
			Parent:     SentinelParent(),
			Nonce:      0,
			Difficulty: gen.Difficulty,
			TimeStamp:  0,
			TransRoot:  merkle.EmptySetRoot(),
		},
	}
}

// =============================================================================

// BlockData represents what is serialized to disk and over the network.
type BlockData struct {
	Hash   signature.Hash `json:"hash"`
	Header BlockHeader    `json:"block"`
	Trans  []SignedTx     `json:"trans"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans,
	}
}

// ToBlock converts a BlockData back into a Block.
func ToBlock(blockData BlockData) Block {
	return Block{
		Header: blockData.Header,
		Trans:  blockData.Trans,
	}
}
