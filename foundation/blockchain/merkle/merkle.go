// Package merkle provides an implementation of a merkle tree for committing
// to the ordered set of transactions inside a block and for producing and
// verifying inclusion proofs against that commitment.
package merkle

import (
	"crypto/sha256"

	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() signature.Hash
	Equals(other T) bool
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits
// the behavior defined by the Hashable constraint. All levels of the tree are
// stored in one flat slice, leaves first and root last.
type Tree[T Hashable[T]] struct {
	nodes     []signature.Hash
	values    []T
	leafCount int
}

// NewTree constructs a merkle tree from the ordered set of values. An empty
// set produces a single node tree whose root is the hash of a 32 byte zero
// buffer. That value is a fixed marker for the empty set, not the hash of
// zero items.
func NewTree[T Hashable[T]](values []T) *Tree[T] {
	if len(values) == 0 {
		return &Tree[T]{
			nodes: []signature.Hash{EmptySetRoot()},
		}
	}

	nodes := make([]signature.Hash, 0, 2*len(values))
	for _, value := range values {
		nodes = append(nodes, value.Hash())
	}

	// A trailing unpaired node is duplicated so every level above a single
	// leaf combines an even number of nodes.
	if len(nodes)%2 == 1 && len(nodes) != 1 {
		nodes = append(nodes, nodes[len(nodes)-1])
	}

	start := 0
	width := len(nodes)
	for width > 1 {
		half := width / 2
		for i := 0; i < half; i++ {
			nodes = append(nodes, combine(nodes[start+2*i], nodes[start+2*i+1]))
		}
		if half%2 == 1 && half != 1 {
			nodes = append(nodes, nodes[len(nodes)-1])
			half++
		}
		start += width
		width = half
	}

	return &Tree[T]{
		nodes:     nodes,
		values:    values,
		leafCount: len(values),
	}
}

// Root returns the merkle root committing to every value in the tree.
func (t *Tree[T]) Root() signature.Hash {
	return t.nodes[len(t.nodes)-1]
}

// Proof returns the sibling hash at each level along the path from the
// specified leaf to the root, ordered leaf side first. It returns nil when
// the index does not name a leaf.
func (t *Tree[T]) Proof(index int) []signature.Hash {
	if index < 0 || index >= t.leafCount {
		return nil
	}

	width := t.leafCount
	if width%2 == 1 && width != 1 {
		width++
	}

	var proof []signature.Hash
	start := 0
	idx := index

	for width > 1 {
		proof = append(proof, t.nodes[start+(idx^1)])
		start += width
		idx /= 2

		width /= 2
		if width%2 == 1 && width != 1 {
			width++
		}
	}

	return proof
}

// Values returns the ordered set of values the tree was built from.
func (t *Tree[T]) Values() []T {
	return t.values
}

// =============================================================================

// Verify recomputes the path from the specified leaf hash to the root using
// the supplied sibling hashes and reports whether the result matches the
// expected root. The concatenation order at each level follows the parity of
// the leaf index at that level.
func Verify(root signature.Hash, leaf signature.Hash, proof []signature.Hash, index int, leafCount int) bool {
	if index < 0 || index >= leafCount {
		return false
	}

	trace := leaf
	idx := index
	for _, sibling := range proof {
		if idx%2 == 1 {
			trace = combine(sibling, trace)
		} else {
			trace = combine(trace, sibling)
		}
		idx /= 2
	}

	return trace == root
}

// EmptySetRoot returns the fixed root marker produced by a tree built over
// zero values.
func EmptySetRoot() signature.Hash {
	var zero [32]byte
	return sha256.Sum256(zero[:])
}

// combine hashes the concatenation of the two child digests.
func combine(left signature.Hash, right signature.Hash) signature.Hash {
	data := make([]byte, 0, 64)
	data = append(data, left[:]...)
	data = append(data, right[:]...)

	return sha256.Sum256(data)
}
