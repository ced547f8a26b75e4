// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/pullchain/pullchain/app/services/node/handlers/v1/public"
	"github.com/pullchain/pullchain/foundation/blockchain/state"
	"github.com/pullchain/pullchain/foundation/events"
	"github.com/pullchain/pullchain/foundation/nameservice"
	"github.com/pullchain/pullchain/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)

	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/node/status", pbl.Status)
	app.Handle(http.MethodGet, version, "/node/peers", pbl.Peers)

	app.Handle(http.MethodGet, version, "/blocks/tip", pbl.Tip)
	app.Handle(http.MethodGet, version, "/blocks/list", pbl.LongestChain)
	app.Handle(http.MethodGet, version, "/blocks/hash/:hash", pbl.BlockByHash)
	app.Handle(http.MethodGet, version, "/blocks/proof/:block/:tx", pbl.MerkleProof)

	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitWalletTransaction)

	app.Handle(http.MethodGet, version, "/miner/start/:interval", pbl.StartMining)
	app.Handle(http.MethodGet, version, "/miner/update", pbl.UpdateMining)
	app.Handle(http.MethodGet, version, "/miner/stop", pbl.StopMining)
}
