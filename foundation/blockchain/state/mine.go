package state

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/pullchain/pullchain/foundation/blockchain/database"
	"github.com/pullchain/pullchain/foundation/blockchain/merkle"
	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// Sentinel errors the miner reacts to.
var (
	ErrNotEnoughTransactions = errors.New("not enough transactions in mempool")
	ErrCandidateRejected     = errors.New("candidate block rejected")
)

// MineCandidate performs one unit of mining work. If the mempool holds at
// least a full batch of transactions, a candidate block is assembled on top
// of the current tip with a random nonce and checked once against the
// difficulty. A winning candidate is inserted into the chain and returned.
// A losing candidate is dropped and, when the recycle policy is on, its
// transactions go back into the mempool for the next attempt.
func (s *State) MineCandidate() (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mempool.Count() < s.genesis.BatchSize {
		return database.Block{}, ErrNotEnoughTransactions
	}

	trans := s.mempool.PickAll()

	tree := merkle.NewTree(trans)

	parent := s.chain.TipBlock()

	block := database.Block{
		Header: database.BlockHeader{
			Parent:     s.chain.Tip(),
			Nonce:      rand.Uint32(),
			Difficulty: parent.Header.Difficulty,
			TimeStamp:  uint32(time.Now().Unix()),
			TransRoot:  tree.Root(),
		},
		Trans: trans,
	}

	hash := block.Hash()

	if !database.IsHashSolved(block.Header.Difficulty, hash) {
		s.recycle(trans, hash)
		return database.Block{}, ErrCandidateRejected
	}

	if err := s.insertBlock(block); err != nil {
		s.recycle(trans, hash)
		return database.Block{}, fmt.Errorf("insert mined block: %w", err)
	}

	height, _ := s.chain.Height(hash)
	s.evHandler("state: MineCandidate: mined block %s height %d with %d txs", hash, height, len(trans))

	return block, nil
}

// recycle returns the drained transactions to the mempool after a failed
// candidate, or drops them when the recycle policy is off.
func (s *State) recycle(trans []database.SignedTx, candidate signature.Hash) {
	if !s.recycleRejectedTxs {
		s.evHandler("state: MineCandidate: candidate %s rejected, dropping %d txs", candidate, len(trans))
		return
	}

	for _, tx := range trans {
		s.mempool.Upsert(tx)
	}
}
