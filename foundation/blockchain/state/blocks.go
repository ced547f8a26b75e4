package state

import (
	"github.com/pullchain/pullchain/foundation/blockchain/database"
	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// ProcessPeerBlocks integrates a batch of blocks received from a peer.
// Blocks already known are skipped. A block whose parent is absent goes to
// the orphan buffer and its parent hash is reported as missing. Everything
// else is validated against proof of work and difficulty continuity and
// inserted; after each insert any orphan waiting on the new block is
// promoted, chaining until the buffer holds nothing connectable. The
// returned accepted list names every hash inserted, directly or by
// promotion.
func (s *State) ProcessPeerBlocks(blocks []database.Block) (missing []signature.Hash, accepted []signature.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, block := range blocks {
		hash := block.Hash()

		if s.chain.Knows(hash) {
			continue
		}

		parent, exists := s.chain.Block(block.Header.Parent)
		if !exists {
			if replaced := s.orphans.Put(block.Header.Parent, block); replaced {
				s.evHandler("state: ProcessPeerBlocks: orphan %s replaced an earlier orphan for parent %s", hash, block.Header.Parent)
			}
			missing = append(missing, block.Header.Parent)
			continue
		}

		if err := block.ValidateBlock(parent); err != nil {
			s.evHandler("state: ProcessPeerBlocks: WARNING: block %s from peer invalid: %s", hash, err)
			continue
		}

		if err := s.insertBlock(block); err != nil {
			s.evHandler("state: ProcessPeerBlocks: WARNING: insert block %s: %s", hash, err)
			continue
		}
		accepted = append(accepted, hash)

		// Promote every orphan the new block just connected.
		for next := hash; ; {
			orphan, waiting := s.orphans.Take(next)
			if !waiting {
				break
			}

			if err := s.insertBlock(orphan); err != nil {
				s.evHandler("state: ProcessPeerBlocks: WARNING: insert orphan %s: %s", orphan.Hash(), err)
				break
			}

			next = orphan.Hash()
			accepted = append(accepted, next)
		}
	}

	return missing, accepted
}

// UnknownHashes filters the specified hashes down to the ones the chain
// does not know about yet.
func (s *State) UnknownHashes(hashes []signature.Hash) []signature.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var unknown []signature.Hash
	for _, hash := range hashes {
		if !s.chain.Knows(hash) {
			unknown = append(unknown, hash)
		}
	}

	return unknown
}

// BlocksByHashes returns the bodies of every requested block the chain
// knows about. Unknown hashes are silently omitted.
func (s *State) BlocksByHashes(hashes []signature.Hash) []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var blocks []database.Block
	for _, hash := range hashes {
		if block, exists := s.chain.Block(hash); exists {
			blocks = append(blocks, block)
		}
	}

	return blocks
}
