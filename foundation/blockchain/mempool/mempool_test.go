package mempool_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pullchain/pullchain/foundation/blockchain/database"
	"github.com/pullchain/pullchain/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

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

// =============================================================================

func Test_Mempool(t *testing.T) {
	t.Log("Given the need to manage the pool of pending transactions.")
	{
		t.Log("\tTest 0:\tWhen adding and draining transactions.")
		{
			mp := mempool.New()
			txs := signedTxs(t, 3)

			for _, tx := range txs {
				mp.Upsert(tx)
			}

			if mp.Count() != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould hold 3 transactions, got %d.", failed, mp.Count())
			}
			t.Logf("\t%s\tTest 0:\tShould hold 3 transactions.", success)

			// Same transaction again must not grow the pool.
			mp.Upsert(txs[0])
			if mp.Count() != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould not grow on a duplicate upsert, got %d.", failed, mp.Count())
			}
			t.Logf("\t%s\tTest 0:\tShould not grow on a duplicate upsert.", success)

			picked := mp.PickAll()
			if len(picked) != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould drain all 3 transactions, got %d.", failed, len(picked))
			}
			t.Logf("\t%s\tTest 0:\tShould drain all 3 transactions.", success)

			if mp.Count() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould be empty after draining, got %d.", failed, mp.Count())
			}
			t.Logf("\t%s\tTest 0:\tShould be empty after draining.", success)
		}

		t.Log("\tTest 1:\tWhen deleting and truncating.")
		{
			mp := mempool.New()
			txs := signedTxs(t, 2)

			for _, tx := range txs {
				mp.Upsert(tx)
			}

			mp.Delete(txs[0])
			if mp.Count() != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould hold 1 transaction after delete, got %d.", failed, mp.Count())
			}
			t.Logf("\t%s\tTest 1:\tShould hold 1 transaction after delete.", success)

			cpy := mp.Copy()
			if len(cpy) != 1 || !cpy[0].Equals(txs[1]) {
				t.Fatalf("\t%s\tTest 1:\tShould copy the remaining transaction.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould copy the remaining transaction.", success)

			mp.Truncate()
			if mp.Count() != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould be empty after truncate, got %d.", failed, mp.Count())
			}
			t.Logf("\t%s\tTest 1:\tShould be empty after truncate.", success)
		}
	}
}
