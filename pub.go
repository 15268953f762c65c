package leanimt

import (
	"fmt"
)

// New creates an empty tree whose nodes are combined with the given
// function. The combiner is the sole source of cryptographic behavior
// and must be deterministic; the tree never validates this, but its
// invariants do not survive a non-deterministic combiner.
func New[V comparable](combine func(a, b V) V) (*LeanIMT[V], error) {
	if combine == nil {
		return nil, fmt.Errorf("combine function is required")
	}
	return &LeanIMT[V]{
		levels:  make([][]V, 1),
		index:   map[V]int{},
		combine: combine,
	}, nil
}

// Insert appends a leaf to the tree, growing the depth if the new size
// crosses a power of two, and returns the new root. The zero value of V
// is reserved as the removal tombstone and cannot be inserted.
func (t *LeanIMT[V]) Insert(leaf V) (V, error) {
	var zero V
	if t.debug {
		fmt.Printf("inserting %v...\n", leaf)
	}
	if leaf == zero {
		return zero, fmt.Errorf("insert: %w", ErrReservedLeaf)
	}
	if _, ok := t.index[leaf]; ok {
		return zero, fmt.Errorf("insert %v: %w", leaf, ErrDuplicateLeaf)
	}
	index := t.size
	t.growDepth(t.size + 1)
	t.levels[0] = append(t.levels[0], leaf)
	t.size++
	t.index[leaf] = index
	t.propagate(index)
	root, _ := t.Root()
	return root, nil
}

// InsertMany appends a batch of leaves and returns the new root. The
// whole batch is validated before any write, and each level is
// recomputed once over the index range whose subtrees gained a leaf,
// rather than once per inserted leaf.
func (t *LeanIMT[V]) InsertMany(leaves []V) (V, error) {
	var zero V
	if len(leaves) == 0 {
		return zero, fmt.Errorf("insert many: %w", ErrEmptyBatch)
	}
	batch := make(map[V]struct{}, len(leaves))
	for _, leaf := range leaves {
		if leaf == zero {
			return zero, fmt.Errorf("insert many: %w", ErrReservedLeaf)
		}
		if _, ok := t.index[leaf]; ok {
			return zero, fmt.Errorf("insert many %v: %w", leaf, ErrDuplicateLeaf)
		}
		if _, ok := batch[leaf]; ok {
			return zero, fmt.Errorf("insert many %v: %w", leaf, ErrDuplicateLeaf)
		}
		batch[leaf] = struct{}{}
	}

	oldSize := t.size
	t.growDepth(oldSize + len(leaves))
	t.levels[0] = append(t.levels[0], leaves...)
	for i, leaf := range leaves {
		t.index[leaf] = oldSize + i
	}
	t.size = oldSize + len(leaves)

	// Recompute each level once, starting at the parent of the first
	// new leaf. The batch may have crossed several power-of-two
	// thresholds, so parents may be appended as well as overwritten.
	start := oldSize
	for level := 0; level < t.depth; level++ {
		width := len(t.levels[level])
		parentWidth := (width + 1) >> 1
		for i := start >> 1; i < parentWidth; i++ {
			var next V
			if 2*i+1 < width {
				next = t.combine(t.levels[level][2*i], t.levels[level][2*i+1])
			} else {
				next = t.levels[level][2*i]
			}
			if i < len(t.levels[level+1]) {
				t.levels[level+1][i] = next
			} else {
				t.levels[level+1] = append(t.levels[level+1], next)
			}
		}
		start >>= 1
	}
	root, _ := t.Root()
	return root, nil
}

// Update replaces oldLeaf with newLeaf and returns the new root. The
// supplied sibling nodes must reproduce the current root when combined
// with oldLeaf along its path; nothing is written until they do. The
// recomputation of the new root uses the tree's own sibling nodes, not
// the caller's.
func (t *LeanIMT[V]) Update(oldLeaf, newLeaf V, siblingNodes []V) (V, error) {
	var zero V
	index, ok := t.index[oldLeaf]
	if !ok {
		return zero, fmt.Errorf("update %v: %w", oldLeaf, ErrLeafNotFound)
	}
	if newLeaf != zero && newLeaf != oldLeaf {
		if _, ok := t.index[newLeaf]; ok {
			return zero, fmt.Errorf("update to %v: %w", newLeaf, ErrDuplicateLeaf)
		}
	}
	if want := t.siblingCount(index); len(siblingNodes) != want {
		return zero, fmt.Errorf("update %v: got %d sibling nodes, path has %d: %w",
			oldLeaf, len(siblingNodes), want, ErrInvalidProofLength)
	}
	if t.pathRoot(oldLeaf, index, siblingNodes) != t.levels[t.depth][0] {
		return zero, fmt.Errorf("update %v: %w", oldLeaf, ErrInvalidProof)
	}
	t.levels[0][index] = newLeaf
	delete(t.index, oldLeaf)
	if newLeaf != zero {
		t.index[newLeaf] = index
	}
	t.propagate(index)
	root, _ := t.Root()
	return root, nil
}

// Remove tombstones the given leaf, replacing it with the zero value of
// V, and returns the new root. The slot is not deleted: size and depth
// are unchanged and every other leaf keeps its index.
func (t *LeanIMT[V]) Remove(leaf V, siblingNodes []V) (V, error) {
	var zero V
	return t.Update(leaf, zero, siblingNodes)
}

// Root returns the tree's commitment, or ok=false for an empty tree.
func (t *LeanIMT[V]) Root() (V, bool) {
	if t.size == 0 {
		var zero V
		return zero, false
	}
	return t.levels[t.depth][0], true
}

// Has reports whether the given value is currently a leaf of the tree.
// Tombstoned leaves are not.
func (t *LeanIMT[V]) Has(leaf V) bool {
	_, ok := t.index[leaf]
	return ok
}

// IndexOf returns the level-0 index of the given leaf.
func (t *LeanIMT[V]) IndexOf(leaf V) (int, bool) {
	index, ok := t.index[leaf]
	return index, ok
}

// Size returns the number of leaf slots, tombstoned ones included.
func (t *LeanIMT[V]) Size() int {
	return t.size
}

// Depth returns the number of levels between the leaves and the root.
func (t *LeanIMT[V]) Depth() int {
	return t.depth
}

// Leaves returns a copy of the leaf level in insertion order, with
// tombstoned slots holding the zero value.
func (t *LeanIMT[V]) Leaves() []V {
	leaves := make([]V, t.size)
	copy(leaves, t.levels[0])
	return leaves
}

// Clone returns an independent copy of the tree sharing nothing with
// the original, for handing to another goroutine or for trying out
// mutations without committing them.
func (t *LeanIMT[V]) Clone() *LeanIMT[V] {
	levels := make([][]V, len(t.levels))
	for i := range t.levels {
		levels[i] = append([]V(nil), t.levels[i]...)
	}
	index := make(map[V]int, len(t.index))
	for leaf, i := range t.index {
		index[leaf] = i
	}
	return &LeanIMT[V]{
		levels:  levels,
		index:   index,
		size:    t.size,
		depth:   t.depth,
		combine: t.combine,
		debug:   t.debug,
	}
}
