// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/pullchain/pullchain/foundation/blockchain/database"
	"github.com/pullchain/pullchain/foundation/blockchain/genesis"
	"github.com/pullchain/pullchain/foundation/blockchain/mempool"
	"github.com/pullchain/pullchain/foundation/blockchain/peer"
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and block propagation.
type Worker interface {
	Shutdown()
	SignalStartMining(interval time.Duration)
	SignalUpdateMining()
	SignalStopMining()
	SignalShareTx(tx database.SignedTx)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Host               string
	Genesis            genesis.Genesis
	Storage            database.Storage
	KnownPeers         *peer.PeerSet
	RecycleRejectedTxs bool
	EvHandler          EventHandler
}

// State manages the blockchain database. The mu mutex is the one exclusive
// lock over the chain: every chain read and write happens under it. The
// mempool and the orphan buffer carry their own locks and when both the
// chain lock and one of those is needed, the chain lock is acquired first.
// The lock is never held across a network send.
type State struct {
	mu sync.RWMutex

	host               string
	genesis            genesis.Genesis
	storage            database.Storage
	knownPeers         *peer.PeerSet
	recycleRejectedTxs bool
	evHandler          EventHandler

	chain   *database.Chain
	mempool *mempool.Mempool
	orphans *OrphanBuffer

	Worker Worker
}

// New constructs a new blockchain for data management. Any blocks found in
// storage are validated and replayed into the in-memory chain.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	genesisBlock := database.GenesisBlock(cfg.Genesis)
	chain := database.NewChain(genesisBlock)

	state := State{
		host:               cfg.Host,
		genesis:            cfg.Genesis,
		storage:            cfg.Storage,
		knownPeers:         cfg.KnownPeers,
		recycleRejectedTxs: cfg.RecycleRejectedTxs,
		evHandler:          ev,

		chain:   chain,
		mempool: mempool.New(),
		orphans: NewOrphanBuffer(),
	}

	if cfg.Storage != nil {
		if err := state.replayStorage(); err != nil {
			return nil, fmt.Errorf("replay storage: %w", err)
		}
	}

	// The Worker is not set here. The call to worker.Run will assign
	// itself and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the database storage is properly closed.
	defer func() {
		if s.storage != nil {
			s.storage.Close()
		}
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// replayStorage loads every block found on disk into the in-memory chain.
// Blocks were persisted in insertion order so each parent is replayed
// before its children.
func (s *State) replayStorage() error {
	iter := s.storage.ForEach()

	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return err
		}

		block := database.ToBlock(blockData)

		parent, exists := s.chain.Block(block.Header.Parent)
		if !exists {
			return fmt.Errorf("stored block %s: %w", blockData.Hash, database.ErrUnknownParent)
		}

		if err := block.ValidateBlock(parent); err != nil {
			return fmt.Errorf("stored block %s: %w", blockData.Hash, err)
		}

		if err := s.chain.Insert(block); err != nil {
			return fmt.Errorf("stored block %s: %w", blockData.Hash, err)
		}
	}

	s.evHandler("state: replayStorage: loaded %d blocks, tip %s", s.chain.Len()-1, s.chain.Tip())

	return nil
}

// insertBlock adds the block to the chain and persists it. The caller must
// hold the chain lock.
func (s *State) insertBlock(block database.Block) error {
	if err := s.chain.Insert(block); err != nil {
		return err
	}

	if s.storage != nil {
		if err := s.storage.Write(database.NewBlockData(block)); err != nil {
			s.evHandler("state: insertBlock: WARNING: persist block %s: %s", block.Hash(), err)
		}
	}

	return nil
}
