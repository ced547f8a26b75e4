package worker_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pullchain/pullchain/foundation/blockchain/database"
	"github.com/pullchain/pullchain/foundation/blockchain/genesis"
	"github.com/pullchain/pullchain/foundation/blockchain/merkle"
	"github.com/pullchain/pullchain/foundation/blockchain/p2p"
	"github.com/pullchain/pullchain/foundation/blockchain/peer"
	"github.com/pullchain/pullchain/foundation/blockchain/signature"
	"github.com/pullchain/pullchain/foundation/blockchain/state"
	"github.com/pullchain/pullchain/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

// fakeNet stands in for the p2p server: an inbox the test feeds and a
// record of every broadcast the worker performs.
type fakeNet struct {
	inbox chan p2p.Inbound

	mu         sync.Mutex
	broadcasts []p2p.Message
}

func newFakeNet() *fakeNet {
	return &fakeNet{
		inbox: make(chan p2p.Inbound, 64),
	}
}

func (f *fakeNet) Inbox() <-chan p2p.Inbound {
	return f.inbox
}

func (f *fakeNet) Broadcast(msg p2p.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, msg)
}

func (f *fakeNet) broadcastCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.broadcasts)
}

func (f *fakeNet) lastBroadcast() (p2p.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.broadcasts) == 0 {
		return p2p.Message{}, false
	}
	return f.broadcasts[len(f.broadcasts)-1], true
}

// fakeSender stands in for one connected peer.
type fakeSender struct {
	mu     sync.Mutex
	writes []p2p.Message
}

func (f *fakeSender) Host() string {
	return "peer.test:9080"
}

func (f *fakeSender) Write(msg p2p.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, msg)
	return nil
}

func (f *fakeSender) lastWrite() (p2p.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return p2p.Message{}, false
	}
	return f.writes[len(f.writes)-1], true
}

// waitFor polls the condition until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// =============================================================================

func newState(t *testing.T, gen genesis.Genesis) *state.State {
	t.Helper()

	st, err := state.New(state.Config{
		Host:               "test:9080",
		Genesis:            gen,
		KnownPeers:         peer.NewPeerSet(),
		RecycleRejectedTxs: true,
	})
	if err != nil {
		t.Fatalf("unable to construct state: %v", err)
	}

	return st
}

func signedTxs(t *testing.T, n int) []database.SignedTx {
	t.Helper()

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("unable to generate key: %v", err)
	}
	fromID := database.PublicKeyToAccountID(privateKey.PublicKey)

	txs := make([]database.SignedTx, n)
	for i := range txs {
		toKey, err := crypto.GenerateKey()
		if err != nil {
			t.Fatalf("unable to generate key: %v", err)
		}

		tx, err := database.NewTx(fromID, database.PublicKeyToAccountID(toKey.PublicKey), uint8(i+1))
		if err != nil {
			t.Fatalf("unable to construct tx: %v", err)
		}

		signedTx, err := tx.Sign(privateKey)
		if err != nil {
			t.Fatalf("unable to sign tx: %v", err)
		}
		txs[i] = signedTx
	}

	return txs
}

func makeBlock(parent database.Block, nonce uint32) database.Block {
	return database.Block{
		Header: database.BlockHeader{
			Parent:     parent.Hash(),
			Nonce:      nonce,
			Difficulty: parent.Header.Difficulty,
			TimeStamp:  parent.Header.TimeStamp + 1,
			TransRoot:  merkle.EmptySetRoot(),
		},
	}
}

func inbound(t *testing.T, sender *fakeSender, kind p2p.MessageKind, payload any) p2p.Inbound {
	t.Helper()

	msg, err := p2p.NewMessage(kind, payload)
	if err != nil {
		t.Fatalf("unable to build message: %v", err)
	}

	data, err := p2p.Encode(msg)
	if err != nil {
		t.Fatalf("unable to encode message: %v", err)
	}

	return p2p.Inbound{Payload: data, Peer: sender}
}

func noop(string, ...any) {}

// =============================================================================

func Test_PingPong(t *testing.T) {
	t.Log("Given the need to answer a ping with a pong.")
	{
		t.Log("\tTest 0:\tWhen a ping arrives from a peer.")
		{
			st := newState(t, genesis.Default())
			net := newFakeNet()
			worker.Run(st, net, 2, noop)
			defer st.Shutdown()

			sender := &fakeSender{}
			net.inbox <- inbound(t, sender, p2p.KindPing, p2p.PingPayload{Nonce: 42})

			if !waitFor(t, func() bool { _, ok := sender.lastWrite(); return ok }) {
				t.Fatalf("\t%s\tTest 0:\tShould write a reply to the peer.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould write a reply to the peer.", success)

			reply, _ := sender.lastWrite()
			if reply.Kind != p2p.KindPong {
				t.Fatalf("\t%s\tTest 0:\tShould reply with a pong, got %q.", failed, reply.Kind)
			}

			var pong p2p.PongPayload
			if err := reply.ParsePayload(&pong); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould carry a pong payload: %v", failed, err)
			}

			if pong.Nonce != "42" {
				t.Fatalf("\t%s\tTest 0:\tShould echo the nonce as a string, got %q.", failed, pong.Nonce)
			}
			t.Logf("\t%s\tTest 0:\tShould echo the nonce as a string.", success)
		}
	}
}

func Test_GossipMinimality(t *testing.T) {
	t.Log("Given the need to request only block bodies the node lacks.")
	{
		t.Log("\tTest 0:\tWhen an unknown hash is announced.")
		{
			st := newState(t, genesis.Default())
			net := newFakeNet()
			worker.Run(st, net, 1, noop)
			defer st.Shutdown()

			stranger := signature.HashOf("unknown block")

			sender := &fakeSender{}
			net.inbox <- inbound(t, sender, p2p.KindNewBlockHashes, p2p.HashesPayload{Hashes: []signature.Hash{stranger}})

			if !waitFor(t, func() bool { _, ok := sender.lastWrite(); return ok }) {
				t.Fatalf("\t%s\tTest 0:\tShould reply to the announcement.", failed)
			}

			reply, _ := sender.lastWrite()
			if reply.Kind != p2p.KindGetBlocks {
				t.Fatalf("\t%s\tTest 0:\tShould reply with a block request, got %q.", failed, reply.Kind)
			}

			var request p2p.HashesPayload
			if err := reply.ParsePayload(&request); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould carry a request payload: %v", failed, err)
			}

			if len(request.Hashes) != 1 || request.Hashes[0] != stranger {
				t.Fatalf("\t%s\tTest 0:\tShould request exactly the unknown hash.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould request exactly the unknown hash.", success)
		}

		t.Log("\tTest 1:\tWhen a known hash is announced.")
		{
			gen := genesis.Default()
			st := newState(t, gen)
			net := newFakeNet()
			worker.Run(st, net, 1, noop)
			defer st.Shutdown()

			genesisBlock := database.GenesisBlock(gen)

			sender := &fakeSender{}
			net.inbox <- inbound(t, sender, p2p.KindNewBlockHashes, p2p.HashesPayload{Hashes: []signature.Hash{genesisBlock.Hash()}})

			if !waitFor(t, func() bool { _, ok := sender.lastWrite(); return ok }) {
				t.Fatalf("\t%s\tTest 1:\tShould still reply to the announcement.", failed)
			}

			reply, _ := sender.lastWrite()
			var request p2p.HashesPayload
			if err := reply.ParsePayload(&request); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould carry a request payload: %v", failed, err)
			}

			if len(request.Hashes) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould request nothing for a known hash, got %d.", failed, len(request.Hashes))
			}
			t.Logf("\t%s\tTest 1:\tShould request nothing for a known hash.", success)
		}
	}
}

func Test_BlockDelivery(t *testing.T) {
	t.Log("Given the need to integrate delivered blocks and resolve orphans.")
	{
		t.Log("\tTest 0:\tWhen a block arrives before its parent.")
		{
			gen := genesis.Default()
			st := newState(t, gen)
			net := newFakeNet()
			worker.Run(st, net, 1, noop)
			defer st.Shutdown()

			genesisBlock := database.GenesisBlock(gen)
			parent := makeBlock(genesisBlock, 1)
			child := makeBlock(parent, 2)

			sender := &fakeSender{}
			net.inbox <- inbound(t, sender, p2p.KindBlocks, p2p.BlocksPayload{
				Blocks: []database.BlockData{database.NewBlockData(child)},
			})

			// The worker must come back asking for the missing parent.
			if !waitFor(t, func() bool {
				msg, ok := sender.lastWrite()
				return ok && msg.Kind == p2p.KindGetBlocks
			}) {
				t.Fatalf("\t%s\tTest 0:\tShould request the missing parent.", failed)
			}

			msg, _ := sender.lastWrite()
			var request p2p.HashesPayload
			if err := msg.ParsePayload(&request); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould carry a request payload: %v", failed, err)
			}
			if len(request.Hashes) != 1 || request.Hashes[0] != parent.Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould request exactly the missing parent.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould request exactly the missing parent.", success)

			// Delivering the parent resolves the orphan and produces one
			// broadcast naming both blocks.
			net.inbox <- inbound(t, sender, p2p.KindBlocks, p2p.BlocksPayload{
				Blocks: []database.BlockData{database.NewBlockData(parent)},
			})

			if !waitFor(t, func() bool { return net.broadcastCount() == 1 }) {
				t.Fatalf("\t%s\tTest 0:\tShould broadcast once after resolving the orphan.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould broadcast once after resolving the orphan.", success)

			announce, _ := net.lastBroadcast()
			if announce.Kind != p2p.KindNewBlockHashes {
				t.Fatalf("\t%s\tTest 0:\tShould broadcast a hash announcement, got %q.", failed, announce.Kind)
			}

			var hashes p2p.HashesPayload
			if err := announce.ParsePayload(&hashes); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould carry a hashes payload: %v", failed, err)
			}

			if len(hashes.Hashes) != 2 || hashes.Hashes[0] != parent.Hash() || hashes.Hashes[1] != child.Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould name the parent and the promoted orphan.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould name the parent and the promoted orphan.", success)

			if st.Tip() != child.Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould leave both blocks in the chain.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould leave both blocks in the chain.", success)
		}

		t.Log("\tTest 1:\tWhen serving a block body request.")
		{
			gen := genesis.Default()
			st := newState(t, gen)
			net := newFakeNet()
			worker.Run(st, net, 1, noop)
			defer st.Shutdown()

			genesisBlock := database.GenesisBlock(gen)
			b1 := makeBlock(genesisBlock, 1)
			st.ProcessPeerBlocks([]database.Block{b1})

			sender := &fakeSender{}
			net.inbox <- inbound(t, sender, p2p.KindGetBlocks, p2p.HashesPayload{
				Hashes: []signature.Hash{b1.Hash(), signature.HashOf("never seen")},
			})

			if !waitFor(t, func() bool { _, ok := sender.lastWrite(); return ok }) {
				t.Fatalf("\t%s\tTest 1:\tShould reply to the request.", failed)
			}

			reply, _ := sender.lastWrite()
			if reply.Kind != p2p.KindBlocks {
				t.Fatalf("\t%s\tTest 1:\tShould reply with block bodies, got %q.", failed, reply.Kind)
			}

			var delivery p2p.BlocksPayload
			if err := reply.ParsePayload(&delivery); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould carry a blocks payload: %v", failed, err)
			}

			if len(delivery.Blocks) != 1 || delivery.Blocks[0].Hash != b1.Hash() {
				t.Fatalf("\t%s\tTest 1:\tShould deliver only the known body.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould deliver only the known body.", success)
		}

		t.Log("\tTest 2:\tWhen a payload fails to decode.")
		{
			st := newState(t, genesis.Default())
			net := newFakeNet()
			worker.Run(st, net, 1, noop)
			defer st.Shutdown()

			sender := &fakeSender{}
			net.inbox <- p2p.Inbound{Payload: []byte("not json"), Peer: sender}

			// The worker must survive and keep serving.
			net.inbox <- inbound(t, sender, p2p.KindPing, p2p.PingPayload{Nonce: 7})

			if !waitFor(t, func() bool {
				msg, ok := sender.lastWrite()
				return ok && msg.Kind == p2p.KindPong
			}) {
				t.Fatalf("\t%s\tTest 2:\tShould keep handling messages after a bad payload.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould keep handling messages after a bad payload.", success)
		}
	}
}

func Test_MinerScenario(t *testing.T) {
	t.Log("Given the need to mine blocks from submitted transactions.")
	{
		t.Log("\tTest 0:\tWhen a full batch is waiting and mining starts.")
		{
			st := newState(t, genesis.Default())
			net := newFakeNet()
			worker.Run(st, net, 1, noop)
			defer st.Shutdown()

			for _, tx := range signedTxs(t, 10) {
				if err := st.SubmitTransaction(tx); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould accept a valid tx: %v", failed, err)
				}
			}

			st.Worker.SignalStartMining(time.Millisecond)

			if !waitFor(t, func() bool { return st.TipHeight() == 1 }) {
				t.Fatalf("\t%s\tTest 0:\tShould mine a block from the full batch.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould mine a block from the full batch.", success)

			mined := st.LatestBlock()
			if len(mined.Trans) != 10 {
				t.Fatalf("\t%s\tTest 0:\tShould include all 10 transactions, got %d.", failed, len(mined.Trans))
			}
			t.Logf("\t%s\tTest 0:\tShould include all 10 transactions.", success)

			if root := merkle.NewTree(mined.Trans).Root(); root != mined.Header.TransRoot {
				t.Fatalf("\t%s\tTest 0:\tShould match an independently computed merkle root.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould match an independently computed merkle root.", success)

			// The mined block must be announced to the peers.
			if !waitFor(t, func() bool {
				f := func(msg p2p.Message) bool {
					if msg.Kind != p2p.KindNewBlockHashes {
						return false
					}
					var hashes p2p.HashesPayload
					if err := json.Unmarshal(msg.Payload, &hashes); err != nil {
						return false
					}
					return len(hashes.Hashes) == 1 && hashes.Hashes[0] == mined.Hash()
				}

				net.mu.Lock()
				defer net.mu.Unlock()
				for _, msg := range net.broadcasts {
					if f(msg) {
						return true
					}
				}
				return false
			}) {
				t.Fatalf("\t%s\tTest 0:\tShould announce the mined block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould announce the mined block.", success)
		}

		t.Log("\tTest 1:\tWhen mining three batches in sequence.")
		{
			st := newState(t, genesis.Default())
			net := newFakeNet()
			worker.Run(st, net, 1, noop)
			defer st.Shutdown()

			st.Worker.SignalStartMining(time.Millisecond)

			for round := 1; round <= 3; round++ {
				for _, tx := range signedTxs(t, 10) {
					if err := st.SubmitTransaction(tx); err != nil {
						t.Fatalf("\t%s\tTest 1:\tShould accept a valid tx: %v", failed, err)
					}
				}

				if !waitFor(t, func() bool { return st.TipHeight() == uint64(round) }) {
					t.Fatalf("\t%s\tTest 1:\tShould mine block %d.", failed, round)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould mine three blocks.", success)

			// Each block must chain onto the previous one.
			hashes := st.LongestChain()
			if len(hashes) != 4 {
				t.Fatalf("\t%s\tTest 1:\tShould walk 4 blocks genesis to tip, got %d.", failed, len(hashes))
			}

			for i := 1; i < len(hashes); i++ {
				blk, _ := st.QueryBlockByHash(hashes[i])
				if blk.Header.Parent != hashes[i-1] {
					t.Fatalf("\t%s\tTest 1:\tShould chain each block by parent hash.", failed)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould chain each block by parent hash.", success)
		}
	}
}
