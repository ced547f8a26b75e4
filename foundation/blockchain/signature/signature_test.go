package signature_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

func Test_SignVerify(t *testing.T) {
	t.Log("Given the need to sign data and verify the signer.")
	{
		t.Log("\tTest 0:\tWhen signing a value with a private key.")
		{
			privateKey, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould generate a private key: %v", failed, err)
			}

			value := struct {
				Name string
			}{
				Name: "important",
			}

			v, r, s, err := signature.Sign(value, privateKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould sign the value: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould sign the value.", success)

			if err := signature.VerifySignature(value, v, r, s); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould verify the signature: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould verify the signature.", success)

			address, err := signature.FromAddress(value, v, r, s)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould recover the signing address: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould recover the signing address.", success)

			exp := crypto.PubkeyToAddress(privateKey.PublicKey).String()
			if address != exp {
				t.Fatalf("\t%s\tTest 0:\tShould recover the signer, got %s, exp %s.", failed, address, exp)
			}
			t.Logf("\t%s\tTest 0:\tShould recover the signer.", success)
		}

		t.Log("\tTest 1:\tWhen the signed value changes.")
		{
			privateKey, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould generate a private key: %v", failed, err)
			}

			value := struct {
				Name string
			}{
				Name: "original",
			}

			v, r, s, err := signature.Sign(value, privateKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould sign the value: %v", failed, err)
			}

			tampered := value
			tampered.Name = "tampered"

			address, err := signature.FromAddress(tampered, v, r, s)
			if err == nil && address == crypto.PubkeyToAddress(privateKey.PublicKey).String() {
				t.Fatalf("\t%s\tTest 1:\tShould not recover the signer for tampered data.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not recover the signer for tampered data.", success)
		}
	}
}

func Test_HashOrdering(t *testing.T) {
	t.Log("Given the need for a total order over hashes.")
	{
		t.Log("\tTest 0:\tWhen comparing hash values.")
		{
			low := signature.Hash{0x00, 0x01}
			high := signature.Hash{0x7F, 0x00}

			if low.Compare(high) >= 0 {
				t.Fatalf("\t%s\tTest 0:\tShould order by the most significant differing byte.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould order by the most significant differing byte.", success)

			if low.Compare(low) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould compare equal hashes as equal.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould compare equal hashes as equal.", success)
		}

		t.Log("\tTest 1:\tWhen round-tripping through the text encoding.")
		{
			h := signature.HashOf("some value")

			text, err := h.MarshalText()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould marshal the hash: %v", failed, err)
			}

			var back signature.Hash
			if err := back.UnmarshalText(text); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould unmarshal the hash: %v", failed, err)
			}

			if back != h {
				t.Fatalf("\t%s\tTest 1:\tShould round-trip the hash, got %s, exp %s.", failed, back, h)
			}
			t.Logf("\t%s\tTest 1:\tShould round-trip the hash.", success)
		}
	}
}
