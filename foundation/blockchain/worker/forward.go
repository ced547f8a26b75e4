package worker

import (
	"github.com/pullchain/pullchain/foundation/blockchain/p2p"
	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// forwardOperations drains the finished-block channel and announces every
// mined block to the known peers. The block is already part of the local
// chain at this point.
func (w *Worker) forwardOperations() {
	w.evHandler("worker: forwardOperations: G started")
	defer w.evHandler("worker: forwardOperations: G completed")

	for {
		select {
		case block := <-w.finished:
			hash := block.Hash()

			msg, err := p2p.NewMessage(p2p.KindNewBlockHashes, p2p.HashesPayload{Hashes: []signature.Hash{hash}})
			if err != nil {
				w.evHandler("worker: forwardOperations: WARNING: encode announcement for %s: %s", hash, err)
				continue
			}

			w.net.Broadcast(msg)
			w.evHandler("worker: forwardOperations: announced block %s", hash)

		case <-w.shut:
			return
		}
	}
}

// shareTxOperations announces the hash of every transaction accepted over
// the wallet API so peers know work is pending.
func (w *Worker) shareTxOperations() {
	w.evHandler("worker: shareTxOperations: G started")
	defer w.evHandler("worker: shareTxOperations: G completed")

	for {
		select {
		case tx := <-w.txSharing:
			msg, err := p2p.NewMessage(p2p.KindNewTransactionHashes, p2p.HashesPayload{Hashes: []signature.Hash{tx.Hash()}})
			if err != nil {
				w.evHandler("worker: shareTxOperations: WARNING: encode announcement: %s", err)
				continue
			}

			w.net.Broadcast(msg)

		case <-w.shut:
			return
		}
	}
}
