// Package worker implements mining, block forwarding and peer message
// handling for the blockchain node.
package worker

import (
	"sync"
	"time"

	"github.com/pullchain/pullchain/foundation/blockchain/database"
	"github.com/pullchain/pullchain/foundation/blockchain/p2p"
	"github.com/pullchain/pullchain/foundation/blockchain/state"
)

// maxTxShareRequests represents the max number of pending transaction
// announcements that can be waiting to be sent.
const maxTxShareRequests = 100

// Network represents the behavior the worker needs from the peer-to-peer
// layer: a shared inbound message stream and a way to talk back.
type Network interface {
	Inbox() <-chan p2p.Inbound
	Broadcast(msg p2p.Message)
}

// Worker manages the goroutines that run the node: one miner, one block
// forwarder, one transaction sharer and a pool of network message handlers.
type Worker struct {
	state     *state.State
	net       Network
	poolSize  int
	wg        sync.WaitGroup
	shut      chan struct{}
	mining    chan command
	finished  chan database.Block
	txSharing chan database.SignedTx
	evHandler state.EventHandler
}

// Run creates a worker, registers it with the state package and starts all
// the goroutines. It does not return until every goroutine is confirmed
// running.
func Run(st *state.State, net Network, poolSize int, evHandler state.EventHandler) {
	if poolSize < 1 {
		poolSize = 1
	}

	w := Worker{
		state:     st,
		net:       net,
		poolSize:  poolSize,
		shut:      make(chan struct{}),
		mining:    make(chan command, 4),
		finished:  make(chan database.Block, 4),
		txSharing: make(chan database.SignedTx, maxTxShareRequests),
		evHandler: evHandler,
	}

	// Register this worker with the state package.
	st.Worker = &w

	operations := []func(){
		w.miningOperations,
		w.forwardOperations,
		w.shareTxOperations,
	}
	for i := 0; i < poolSize; i++ {
		operations = append(operations, w.networkOperations)
	}

	// Load the set of operations needed to run.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates all the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.SignalStopMining()

	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining moves the miner into the running condition with the
// specified pause between mining attempts.
func (w *Worker) SignalStartMining(interval time.Duration) {
	select {
	case w.mining <- command{kind: cmdStart, interval: interval}:
	default:
	}
	w.evHandler("worker: SignalStartMining: interval %s", interval)
}

// SignalUpdateMining tells a running miner to pick up the latest tip and
// mempool immediately instead of finishing its pause first.
func (w *Worker) SignalUpdateMining() {
	select {
	case w.mining <- command{kind: cmdUpdate}:
	default:
	}
	w.evHandler("worker: SignalUpdateMining: update signaled")
}

// SignalStopMining terminates the mining goroutine for good.
func (w *Worker) SignalStopMining() {
	select {
	case w.mining <- command{kind: cmdExit}:
	default:
	}
	w.evHandler("worker: SignalStopMining: exit signaled")
}

// SignalShareTx queues a transaction hash announcement for the known peers.
func (w *Worker) SignalShareTx(tx database.SignedTx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: tx sharing signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, announcement dropped")
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
