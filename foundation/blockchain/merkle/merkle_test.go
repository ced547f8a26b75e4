package merkle_test

import (
	"testing"

	"github.com/pullchain/pullchain/foundation/blockchain/merkle"
	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

// data represents the values stored in the merkle tree for testing.
type data struct {
	Value string
}

func (d data) Hash() signature.Hash {
	return signature.HashOf(d)
}

func (d data) Equals(other data) bool {
	return d.Value == other.Value
}

func makeValues(n int) []data {
	values := make([]data, n)
	for i := range values {
		values[i] = data{Value: string(rune('a' + i))}
	}
	return values
}

// =============================================================================

func Test_ProofRoundTrip(t *testing.T) {
	t.Log("Given the need to verify inclusion proofs for every leaf.")
	{
		for n := 1; n <= 8; n++ {
			t.Logf("\tTest %d:\tWhen handling a tree of %d values.", n-1, n)
			{
				values := makeValues(n)
				tree := merkle.NewTree(values)

				for index, value := range values {
					proof := tree.Proof(index)
					if proof == nil && n > 1 {
						t.Fatalf("\t%s\tTest %d:\tShould have a proof for index %d.", failed, n-1, index)
					}

					if !merkle.Verify(tree.Root(), value.Hash(), proof, index, n) {
						t.Fatalf("\t%s\tTest %d:\tShould verify the proof for index %d.", failed, n-1, index)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould verify the proof for every index.", success, n-1)
			}
		}
	}
}

func Test_ProofRejectsWrongLeaf(t *testing.T) {
	t.Log("Given the need to reject proofs for the wrong leaf.")
	{
		t.Log("\tTest 0:\tWhen verifying a proof against a different value.")
		{
			values := makeValues(5)
			tree := merkle.NewTree(values)

			proof := tree.Proof(2)

			if merkle.Verify(tree.Root(), values[3].Hash(), proof, 2, 5) {
				t.Fatalf("\t%s\tTest 0:\tShould not verify a proof against the wrong leaf.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not verify a proof against the wrong leaf.", success)

			if merkle.Verify(tree.Root(), values[2].Hash(), proof, 3, 5) {
				t.Fatalf("\t%s\tTest 0:\tShould not verify a proof against the wrong index.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not verify a proof against the wrong index.", success)
		}
	}
}

func Test_ProofOutOfRange(t *testing.T) {
	t.Log("Given the need to reject out of range proof requests.")
	{
		t.Log("\tTest 0:\tWhen requesting proofs outside the leaf range.")
		{
			values := makeValues(4)
			tree := merkle.NewTree(values)

			if proof := tree.Proof(4); proof != nil {
				t.Fatalf("\t%s\tTest 0:\tShould not produce a proof for index == leaf count.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not produce a proof for index == leaf count.", success)

			if proof := tree.Proof(-1); proof != nil {
				t.Fatalf("\t%s\tTest 0:\tShould not produce a proof for a negative index.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not produce a proof for a negative index.", success)
		}
	}
}

func Test_EmptyTree(t *testing.T) {
	t.Log("Given the need to commit to an empty set of values.")
	{
		t.Log("\tTest 0:\tWhen building a tree from no values.")
		{
			tree := merkle.NewTree([]data(nil))

			if tree.Root() != merkle.EmptySetRoot() {
				t.Fatalf("\t%s\tTest 0:\tShould use the empty set marker as the root.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould use the empty set marker as the root.", success)

			if tree.Root().IsZero() {
				t.Fatalf("\t%s\tTest 0:\tShould not use the zero hash as the root.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not use the zero hash as the root.", success)
		}
	}
}

func Test_RootChangesWithValues(t *testing.T) {
	t.Log("Given the need for the root to commit to order and content.")
	{
		t.Log("\tTest 0:\tWhen comparing trees with different value sets.")
		{
			treeA := merkle.NewTree(makeValues(4))
			treeB := merkle.NewTree(makeValues(5))

			if treeA.Root() == treeB.Root() {
				t.Fatalf("\t%s\tTest 0:\tShould have different roots for different value sets.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have different roots for different value sets.", success)

			swapped := makeValues(4)
			swapped[0], swapped[1] = swapped[1], swapped[0]
			treeC := merkle.NewTree(swapped)

			if treeA.Root() == treeC.Root() {
				t.Fatalf("\t%s\tTest 0:\tShould have different roots for different orders.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have different roots for different orders.", success)
		}
	}
}
