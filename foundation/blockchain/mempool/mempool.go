// Package mempool maintains the pool of pending, unconfirmed transactions
// awaiting inclusion in a block.
package mempool

import (
	"sync"

	"github.com/pullchain/pullchain/foundation/blockchain/database"
	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// Mempool represents a cache of pending transactions keyed by their digest.
// Each entry's key always equals the hash of its value.
type Mempool struct {
	pool map[signature.Hash]database.SignedTx
	mu   sync.RWMutex
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[signature.Hash]database.SignedTx),
	}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction in the mempool and returns the new
// pool size.
func (mp *Mempool) Upsert(tx database.SignedTx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool[tx.Hash()] = tx

	return len(mp.pool)
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(tx database.SignedTx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, tx.Hash())
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[signature.Hash]database.SignedTx)
}

// Copy returns a list of the current transactions in the pool.
func (mp *Mempool) Copy() []database.SignedTx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	txs := make([]database.SignedTx, 0, len(mp.pool))
	for _, tx := range mp.pool {
		txs = append(txs, tx)
	}

	return txs
}

// PickAll drains every transaction from the pool and returns them. The
// miner uses this to move the whole pending set into a candidate block.
func (mp *Mempool) PickAll() []database.SignedTx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	txs := make([]database.SignedTx, 0, len(mp.pool))
	for _, tx := range mp.pool {
		txs = append(txs, tx)
	}

	mp.pool = make(map[signature.Hash]database.SignedTx)

	return txs
}
