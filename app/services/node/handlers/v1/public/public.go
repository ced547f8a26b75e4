// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	v1 "github.com/pullchain/pullchain/business/web/v1"
	"github.com/pullchain/pullchain/foundation/blockchain/database"
	"github.com/pullchain/pullchain/foundation/blockchain/merkle"
	"github.com/pullchain/pullchain/foundation/blockchain/signature"
	"github.com/pullchain/pullchain/foundation/blockchain/state"
	"github.com/pullchain/pullchain/foundation/events"
	"github.com/pullchain/pullchain/foundation/nameservice"
	"github.com/pullchain/pullchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds a new signed transaction to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var signedTx database.SignedTx
	if err := web.Decode(r, &signedTx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	h.Log.Infow("add user tran", "traceid", v.TraceID, "from", signedTx.FromID, "to", signedTx.ToID, "value", signedTx.Value)
	if err := h.State.SubmitTransaction(signedTx); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction added to mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.Genesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	tip := h.State.Tip()

	resp := struct {
		Host       string         `json:"host"`
		Tip        signature.Hash `json:"tip"`
		Height     uint64         `json:"height"`
		Mempool    int            `json:"mempool"`
		Orphans    int            `json:"orphans"`
		KnownPeers int            `json:"known_peers"`
	}{
		Host:       h.State.Host(),
		Tip:        tip,
		Height:     h.State.TipHeight(),
		Mempool:    h.State.MempoolLen(),
		Orphans:    h.State.OrphanLen(),
		KnownPeers: len(h.State.KnownPeers()),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Peers returns the set of known peers.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.KnownPeers(), http.StatusOK)
}

// Tip returns the block the fork-choice rule currently selects.
func (h Handlers) Tip(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blk := h.State.LatestBlock()
	height, _ := h.State.BlockHeight(blk.Hash())

	return web.Respond(ctx, w, toBlock(h.NS, blk, height), http.StatusOK)
}

// LongestChain returns every block from genesis to the tip.
func (h Handlers) LongestChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hashes := h.State.LongestChain()

	blocks := make([]block, 0, len(hashes))
	for _, hash := range hashes {
		blk, exists := h.State.QueryBlockByHash(hash)
		if !exists {
			continue
		}
		height, _ := h.State.BlockHeight(hash)
		blocks = append(blocks, toBlock(h.NS, blk, height))
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// BlockByHash returns the block with the specified hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := parseHash(web.Param(r, "hash"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	blk, exists := h.State.QueryBlockByHash(hash)
	if !exists {
		return v1.NewRequestError(errors.New("block not found"), http.StatusNotFound)
	}

	height, _ := h.State.BlockHeight(hash)
	return web.Respond(ctx, w, toBlock(h.NS, blk, height), http.StatusOK)
}

// MerkleProof returns an inclusion proof for a transaction inside a block
// along with an independent verification of that proof.
func (h Handlers) MerkleProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blockHash, err := parseHash(web.Param(r, "block"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	txHash, err := parseHash(web.Param(r, "tx"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	blk, exists := h.State.QueryBlockByHash(blockHash)
	if !exists {
		return v1.NewRequestError(errors.New("block not found"), http.StatusNotFound)
	}

	index := -1
	for i, signedTx := range blk.Trans {
		if signedTx.Hash() == txHash {
			index = i
			break
		}
	}
	if index == -1 {
		return v1.NewRequestError(errors.New("transaction not in block"), http.StatusNotFound)
	}

	tree := merkle.NewTree(blk.Trans)
	proof := tree.Proof(index)

	resp := struct {
		Root      signature.Hash   `json:"root"`
		Leaf      signature.Hash   `json:"leaf"`
		Index     int              `json:"index"`
		LeafCount int              `json:"leaf_count"`
		Proof     []signature.Hash `json:"proof"`
		Verified  bool             `json:"verified"`
	}{
		Root:      tree.Root(),
		Leaf:      txHash,
		Index:     index,
		LeafCount: len(blk.Trans),
		Proof:     proof,
		Verified:  merkle.Verify(tree.Root(), txHash, proof, index, len(blk.Trans)),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mempool := h.State.MempoolCopy()

	trans := make([]tx, len(mempool))
	for i, signedTx := range mempool {
		trans[i] = toTx(h.NS, signedTx)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// StartMining moves the miner into the running condition.
func (h Handlers) StartMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	interval, err := time.ParseDuration(web.Param(r, "interval"))
	if err != nil {
		return v1.NewRequestError(fmt.Errorf("invalid interval: %w", err), http.StatusBadRequest)
	}

	h.State.Worker.SignalStartMining(interval)

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining started",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// UpdateMining tells a running miner to pick up the latest tip and mempool
// right away.
func (h Handlers) UpdateMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.State.Worker.SignalUpdateMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining update signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// StopMining terminates the mining goroutine.
func (h Handlers) StopMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.State.Worker.SignalStopMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining stopped",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// parseHash converts a hex encoded hash parameter into a Hash value.
func parseHash(param string) (signature.Hash, error) {
	var hash signature.Hash
	if err := hash.UnmarshalText([]byte(param)); err != nil {
		return signature.Hash{}, fmt.Errorf("invalid hash %q: %w", param, err)
	}
	return hash, nil
}
