package worker

import (
	"strconv"

	"github.com/pullchain/pullchain/foundation/blockchain/database"
	"github.com/pullchain/pullchain/foundation/blockchain/p2p"
)

// networkOperations is one member of the network worker pool. Each member
// pulls from the shared inbound channel and handles one message at a time.
// A message that fails to decode or parse costs only that message.
func (w *Worker) networkOperations() {
	w.evHandler("worker: networkOperations: G started")
	defer w.evHandler("worker: networkOperations: G completed")

	for {
		select {
		case in := <-w.net.Inbox():
			w.handleMessage(in)

		case <-w.shut:
			return
		}
	}
}

// handleMessage decodes and dispatches one peer message.
func (w *Worker) handleMessage(in p2p.Inbound) {
	msg, err := p2p.Decode(in.Payload)
	if err != nil {
		w.evHandler("worker: networkOperations: WARNING: decode from %s: %s", in.Peer.Host(), err)
		return
	}

	switch msg.Kind {
	case p2p.KindPing:
		var ping p2p.PingPayload
		if err := msg.ParsePayload(&ping); err != nil {
			w.evHandler("worker: networkOperations: WARNING: ping from %s: %s", in.Peer.Host(), err)
			return
		}
		w.reply(in, p2p.KindPong, p2p.PongPayload{Nonce: strconv.FormatUint(uint64(ping.Nonce), 10)})

	case p2p.KindPong:
		var pong p2p.PongPayload
		if err := msg.ParsePayload(&pong); err != nil {
			return
		}
		w.evHandler("worker: networkOperations: pong %q from %s", pong.Nonce, in.Peer.Host())

	case p2p.KindNewBlockHashes:
		var announce p2p.HashesPayload
		if err := msg.ParsePayload(&announce); err != nil {
			w.evHandler("worker: networkOperations: WARNING: announcement from %s: %s", in.Peer.Host(), err)
			return
		}

		// Request only the bodies we lack. The reply goes out even when
		// the list is empty.
		unknown := w.state.UnknownHashes(announce.Hashes)
		w.reply(in, p2p.KindGetBlocks, p2p.HashesPayload{Hashes: unknown})

	case p2p.KindGetBlocks:
		var request p2p.HashesPayload
		if err := msg.ParsePayload(&request); err != nil {
			w.evHandler("worker: networkOperations: WARNING: request from %s: %s", in.Peer.Host(), err)
			return
		}

		blocks := w.state.BlocksByHashes(request.Hashes)
		payload := p2p.BlocksPayload{Blocks: make([]database.BlockData, 0, len(blocks))}
		for _, block := range blocks {
			payload.Blocks = append(payload.Blocks, database.NewBlockData(block))
		}
		w.reply(in, p2p.KindBlocks, payload)

	case p2p.KindBlocks:
		var delivery p2p.BlocksPayload
		if err := msg.ParsePayload(&delivery); err != nil {
			w.evHandler("worker: networkOperations: WARNING: blocks from %s: %s", in.Peer.Host(), err)
			return
		}

		blocks := make([]database.Block, 0, len(delivery.Blocks))
		for _, blockData := range delivery.Blocks {
			blocks = append(blocks, database.ToBlock(blockData))
		}

		missing, accepted := w.state.ProcessPeerBlocks(blocks)

		if len(missing) > 0 {
			w.reply(in, p2p.KindGetBlocks, p2p.HashesPayload{Hashes: missing})
		}

		if len(accepted) > 0 {
			announce, err := p2p.NewMessage(p2p.KindNewBlockHashes, p2p.HashesPayload{Hashes: accepted})
			if err != nil {
				w.evHandler("worker: networkOperations: WARNING: encode announcement: %s", err)
				return
			}
			w.net.Broadcast(announce)
		}

	case p2p.KindNewTransactionHashes:
		var announce p2p.HashesPayload
		if err := msg.ParsePayload(&announce); err != nil {
			return
		}
		w.evHandler("worker: networkOperations: %d pending txs announced by %s", len(announce.Hashes), in.Peer.Host())

	default:
		w.evHandler("worker: networkOperations: WARNING: unexpected message kind %q from %s", msg.Kind, in.Peer.Host())
	}
}

// reply sends one message back to the peer the inbound came from.
func (w *Worker) reply(in p2p.Inbound, kind p2p.MessageKind, payload any) {
	msg, err := p2p.NewMessage(kind, payload)
	if err != nil {
		w.evHandler("worker: networkOperations: WARNING: encode %s reply: %s", kind, err)
		return
	}

	if err := in.Peer.Write(msg); err != nil {
		w.evHandler("worker: networkOperations: WARNING: write %s to %s: %s", kind, in.Peer.Host(), err)
	}
}
