// This program pumps random signed transactions into a node. Useful for
// giving the miner something to do during development.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pullchain/pullchain/foundation/blockchain/database"
)

var build = "develop"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := struct {
		conf.Version
		URL      string        `conf:"default:http://localhost:8080"`
		KeyFile  string        `conf:"default:zblock/accounts/private.ecdsa"`
		Count    int           `conf:"default:10"`
		Interval time.Duration `conf:"default:100ms"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "transaction generator",
		},
	}

	const prefix = "TXGEN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	privateKey, err := crypto.LoadECDSA(cfg.KeyFile)
	if err != nil {
		return fmt.Errorf("unable to load private key: %w", err)
	}
	fromID := database.PublicKeyToAccountID(privateKey.PublicKey)

	for i := 0; i < cfg.Count; i++ {

		// Send each transaction to a random throwaway account.
		toKey, err := crypto.GenerateKey()
		if err != nil {
			return err
		}
		toID := database.PublicKeyToAccountID(toKey.PublicKey)

		tx, err := database.NewTx(fromID, toID, uint8(rand.Intn(256)))
		if err != nil {
			return err
		}

		signedTx, err := tx.Sign(privateKey)
		if err != nil {
			return err
		}

		data, err := json.Marshal(signedTx)
		if err != nil {
			return err
		}

		resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", cfg.URL), "application/json", bytes.NewBuffer(data))
		if err != nil {
			return err
		}
		resp.Body.Close()

		fmt.Printf("sent tx %d: %s -> %s (%d)\n", i+1, fromID, toID, signedTx.Value)
		time.Sleep(cfg.Interval)
	}

	return nil
}
