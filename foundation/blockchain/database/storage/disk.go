// Package storage implements the database.Storage interface for persisting
// blocks on disk inside a badger key/value store, plus an in-memory
// implementation for tests and ephemeral nodes.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/pullchain/pullchain/foundation/blockchain/database"
)

// ErrEndOfChain is returned by an iterator that walked past the last
// persisted block.
var ErrEndOfChain = errors.New("end of chain")

// Disk represents the storage implementation for persisting blocks inside a
// badger database. Blocks are keyed by a write sequence number so they
// replay in insertion order.
type Disk struct {
	db   *badger.DB
	next uint64
}

// NewDisk creates or opens the badger database at the specified path.
func NewDisk(dbPath string) (*Disk, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open block store: %w", err)
	}

	d := Disk{db: db}

	// Find the next write sequence by walking back from the highest key.
	err = db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Reverse = true
		itOpts.PrefetchValues = false

		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Seek([]byte("blk:\xff")); it.ValidForPrefix([]byte("blk:")); it.Next() {
			var seq uint64
			if _, err := fmt.Sscanf(string(it.Item().Key()), "blk:%016d", &seq); err != nil {
				return err
			}
			d.next = seq + 1
			break
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &d, nil
}

// Close releases the underlying badger database.
func (d *Disk) Close() error {
	return d.db.Close()
}

// Write persists the specified block under the next sequence number.
func (d *Disk) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	err = d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(seqKey(d.next), data)
	})
	if err != nil {
		return err
	}

	d.next++
	return nil
}

// ForEach returns an iterator to walk through all the persisted blocks in
// the order they were written.
func (d *Disk) ForEach() database.Iterator {
	return &DiskIterator{disk: d}
}

// Reset clears out the persisted blockchain.
func (d *Disk) Reset() error {
	if err := d.db.DropAll(); err != nil {
		return err
	}

	d.next = 0
	return nil
}

// seqKey forms the badger key for the specified write sequence.
func seqKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("blk:%016d", seq))
}

// =============================================================================

// DiskIterator represents the iteration implementation for walking through
// and reading blocks from badger. This implements the database.Iterator
// interface.
type DiskIterator struct {
	disk    *Disk  // Access to the badger store.
	current uint64 // Current sequence number being iterated over.
	eoc     bool   // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from the store.
func (di *DiskIterator) Next() (database.BlockData, error) {
	if di.eoc {
		return database.BlockData{}, ErrEndOfChain
	}

	var blockData database.BlockData
	err := di.disk.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(seqKey(di.current))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &blockData)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		di.eoc = true
		return database.BlockData{}, ErrEndOfChain
	}
	if err != nil {
		return database.BlockData{}, err
	}

	di.current++
	return blockData, nil
}

// Done returns the end of chain value.
func (di *DiskIterator) Done() bool {
	return di.eoc
}
