// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date       time.Time      `json:"date"`
	ChainID    uint16         `json:"chain_id"`   // An unique id for this running instance.
	BatchSize  int            `json:"batch_size"` // Number of pending transactions needed before a candidate block is built.
	Difficulty signature.Hash `json:"difficulty"` // Threshold a block hash must not exceed. Fixed for the life of the chain.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Default returns the genesis used when no genesis file exists on disk. The
// difficulty is the maximum hash value, so every candidate block satisfies
// the proof of work check. Useful for development and tests.
func Default() Genesis {
	var difficulty signature.Hash
	for i := range difficulty {
		difficulty[i] = 0xFF
	}

	return Genesis{
		Date:       time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		ChainID:    1,
		BatchSize:  10,
		Difficulty: difficulty,
	}
}
