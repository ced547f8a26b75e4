package p2p_test

import (
	"testing"

	"github.com/pullchain/pullchain/foundation/blockchain/p2p"
	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_MessageCodec(t *testing.T) {
	t.Log("Given the need to frame messages for the wire.")
	{
		t.Log("\tTest 0:\tWhen encoding and decoding an announcement.")
		{
			hash := signature.HashOf("some block")

			msg, err := p2p.NewMessage(p2p.KindNewBlockHashes, p2p.HashesPayload{Hashes: []signature.Hash{hash}})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould build the message: %v", failed, err)
			}

			data, err := p2p.Encode(msg)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould encode the message: %v", failed, err)
			}

			got, err := p2p.Decode(data)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould decode the frame: %v", failed, err)
			}

			if got.Kind != p2p.KindNewBlockHashes {
				t.Fatalf("\t%s\tTest 0:\tShould keep the kind, got %q.", failed, got.Kind)
			}

			var payload p2p.HashesPayload
			if err := got.ParsePayload(&payload); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould parse the payload: %v", failed, err)
			}

			if len(payload.Hashes) != 1 || payload.Hashes[0] != hash {
				t.Fatalf("\t%s\tTest 0:\tShould keep the announced hash.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould survive the round trip.", success)
		}

		t.Log("\tTest 1:\tWhen decoding hostile input.")
		{
			if _, err := p2p.Decode([]byte(`{"kind":"made_up","payload":{}}`)); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject an unknown kind.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject an unknown kind.", success)

			if _, err := p2p.Decode([]byte("not json at all")); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject a malformed frame.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a malformed frame.", success)
		}
	}
}
