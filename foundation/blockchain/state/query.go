package state

import (
	"github.com/pullchain/pullchain/foundation/blockchain/database"
	"github.com/pullchain/pullchain/foundation/blockchain/genesis"
	"github.com/pullchain/pullchain/foundation/blockchain/peer"
	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// Host returns a copy of host information.
func (s *State) Host() string {
	return s.host
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// Tip returns the hash of the block the fork-choice rule currently selects.
func (s *State) Tip() signature.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain.Tip()
}

// LatestBlock returns the current tip block.
func (s *State) LatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain.TipBlock()
}

// TipHeight returns the height of the current tip.
func (s *State) TipHeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	height, _ := s.chain.Height(s.chain.Tip())
	return height
}

// LongestChain returns the block hashes from genesis to the tip.
func (s *State) LongestChain() []signature.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain.LongestChain()
}

// QueryBlockByHash returns the block with the specified hash if the chain
// knows it.
func (s *State) QueryBlockByHash(hash signature.Hash) (database.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain.Block(hash)
}

// BlockHeight returns the height of the specified block if the chain
// knows it.
func (s *State) BlockHeight(hash signature.Hash) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain.Height(hash)
}

// MempoolLen returns the number of transactions waiting to be mined.
func (s *State) MempoolLen() int {
	return s.mempool.Count()
}

// MempoolCopy returns a copy of the mempool.
func (s *State) MempoolCopy() []database.SignedTx {
	return s.mempool.Copy()
}

// OrphanLen returns the number of blocks waiting on a missing parent.
func (s *State) OrphanLen() int {
	return s.orphans.Len()
}

// KnownPeers returns a copy of the set of known peers.
func (s *State) KnownPeers() []peer.Peer {
	return s.knownPeers.Copy()
}
