package leanimt

import (
	"fmt"
)

// MerkleProof carries everything needed to verify membership of a leaf
// without the tree: the root at proof time, the leaf value, the packed
// path bits (LSB is the first combined level; levels where the path had
// no sibling are skipped), and the sibling nodes in leaf-to-root order.
// Siblings is in exactly the shape Update and Remove accept.
type MerkleProof[V comparable] struct {
	Root     V
	Leaf     V
	Index    uint64
	Siblings []V
}

// GenerateProof builds a proof of membership for the given leaf value.
func (t *LeanIMT[V]) GenerateProof(leaf V) (MerkleProof[V], error) {
	index, ok := t.index[leaf]
	if !ok {
		var empty MerkleProof[V]
		return empty, fmt.Errorf("generate proof for %v: %w", leaf, ErrLeafNotFound)
	}
	return t.GenerateProofAt(index)
}

// GenerateProofAt builds a proof for the leaf slot at the given index.
// Unlike GenerateProof it also works for tombstoned slots, whose values
// are no longer reachable by leaf lookup.
func (t *LeanIMT[V]) GenerateProofAt(index int) (MerkleProof[V], error) {
	if index < 0 || index >= t.size {
		var empty MerkleProof[V]
		return empty, fmt.Errorf("generate proof at %d: %w", index, ErrLeafOutOfRange)
	}
	leaf := t.levels[0][index]
	siblings := make([]V, 0, t.depth)
	var packed uint64
	bit := 0
	for level := 0; level < t.depth; level++ {
		if index^1 < len(t.levels[level]) {
			if index&1 == 1 {
				packed |= 1 << bit
			}
			siblings = append(siblings, t.levels[level][index^1])
			bit++
		}
		index >>= 1
	}
	root, _ := t.Root()
	return MerkleProof[V]{
		Root:     root,
		Leaf:     leaf,
		Index:    packed,
		Siblings: siblings,
	}, nil
}

// VerifyProof reports whether the proof is self-consistent under the
// tree's combine function. It does not compare against the tree's
// current root; a proof from an older version of the tree still
// verifies against the root it carries.
func (t *LeanIMT[V]) VerifyProof(proof MerkleProof[V]) bool {
	return VerifyProofWith(proof, t.combine)
}

// VerifyProofWith verifies a proof using the given combine function,
// for consumers that hold a proof and a root but no tree.
func VerifyProofWith[V comparable](proof MerkleProof[V], combine func(a, b V) V) bool {
	if combine == nil {
		return false
	}
	node := proof.Leaf
	for i, sibling := range proof.Siblings {
		if (proof.Index>>i)&1 == 1 {
			node = combine(sibling, node)
		} else {
			node = combine(node, sibling)
		}
	}
	return node == proof.Root
}
