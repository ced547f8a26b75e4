package worker

import (
	"errors"
	"time"

	"github.com/pullchain/pullchain/foundation/blockchain/state"
)

// The miner is a state machine. It starts paused, runs on command and once
// told to exit it never comes back.
type minerState int

const (
	minerPaused minerState = iota
	minerRunning
	minerShutDown
)

// The commands the control channel carries.
type commandKind int

const (
	cmdStart commandKind = iota
	cmdUpdate
	cmdExit
)

type command struct {
	kind     commandKind
	interval time.Duration
}

// miningOperations runs the mining state machine. While running it performs
// one unit of mining work per iteration and then pauses for the configured
// interval. An update command cuts the pause short so the next attempt sees
// the latest tip and mempool right away.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	st := minerPaused
	var interval time.Duration

	for st != minerShutDown {
		switch st {
		case minerPaused:
			select {
			case cmd := <-w.mining:
				switch cmd.kind {
				case cmdStart:
					st = minerRunning
					interval = cmd.interval
					w.evHandler("worker: miningOperations: running with interval %s", interval)
				case cmdExit:
					st = minerShutDown
				case cmdUpdate:
					// Nothing to refresh while paused.
				}
			case <-w.shut:
				st = minerShutDown
			}

		case minerRunning:
			skipPause := false

			select {
			case cmd := <-w.mining:
				switch cmd.kind {
				case cmdStart:
					interval = cmd.interval
				case cmdUpdate:
					skipPause = true
				case cmdExit:
					st = minerShutDown
					continue
				}
			case <-w.shut:
				st = minerShutDown
				continue
			default:
			}

			block, err := w.state.MineCandidate()
			switch {
			case err == nil:
				select {
				case w.finished <- block:
				case <-w.shut:
					st = minerShutDown
					continue
				}

			case errors.Is(err, state.ErrNotEnoughTransactions):
			case errors.Is(err, state.ErrCandidateRejected):

			default:
				w.evHandler("worker: miningOperations: WARNING: %s", err)
			}

			if interval > 0 && !skipPause {
				st, interval = w.pause(interval)
			}
		}
	}
}

// pause waits out the mining interval while staying responsive to control
// commands and shutdown. An update command ends the pause early. It returns
// the next miner state and interval.
func (w *Worker) pause(interval time.Duration) (minerState, time.Duration) {
	t := time.NewTimer(interval)
	defer t.Stop()

	select {
	case <-t.C:
		return minerRunning, interval

	case cmd := <-w.mining:
		switch cmd.kind {
		case cmdStart:
			return minerRunning, cmd.interval
		case cmdExit:
			return minerShutDown, interval
		}
		return minerRunning, interval

	case <-w.shut:
		return minerShutDown, interval
	}
}
