package state

import (
	"fmt"

	"github.com/pullchain/pullchain/foundation/blockchain/database"
)

// SubmitTransaction accepts a signed transaction from a wallet, validates
// its signature and adds it to the mempool. The transaction hash is shared
// with the known peers.
func (s *State) SubmitTransaction(signedTx database.SignedTx) error {
	s.evHandler("state: SubmitTransaction: started: %s", signedTx)
	defer s.evHandler("state: SubmitTransaction: completed")

	if err := signedTx.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	n := s.mempool.Upsert(signedTx)
	s.evHandler("state: SubmitTransaction: mempool count %d", n)

	if s.Worker != nil {
		s.Worker.SignalShareTx(signedTx)
	}

	return nil
}

// UpsertPeerTransaction adds an already validated transaction received
// from a peer to the mempool without re-sharing it.
func (s *State) UpsertPeerTransaction(signedTx database.SignedTx) error {
	if err := signedTx.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	s.mempool.Upsert(signedTx)

	return nil
}
