package leanimt

import (
	"fmt"
)

// LeanIMT encapsulates the in-memory state of a lean incremental Merkle
// tree over node values of type V. V must be comparable so leaves can be
// looked up by value.
type LeanIMT[V comparable] struct {
	// levels[0] holds the leaves in insertion order; levels[depth][0] is
	// the root when the tree is non-empty.
	levels  [][]V
	index   map[V]int
	size    int
	depth   int
	combine func(a, b V) V
	debug   bool
}

// propagate recomputes the path from the changed leaf index up to the
// root, applying the lean rule at every level: a node with a sibling is
// combined left-first, a node without one passes through unchanged.
// Insertion, update and removal all funnel through here; they differ
// only in what they put at levels[0] first.
func (t *LeanIMT[V]) propagate(index int) {
	for level := 0; level < t.depth; level++ {
		node := t.levels[level][index]
		sibling := index ^ 1
		parent := index >> 1
		var next V
		if sibling < len(t.levels[level]) {
			if index&1 == 1 {
				next = t.combine(t.levels[level][sibling], node)
			} else {
				next = t.combine(node, t.levels[level][sibling])
			}
		} else {
			next = node
		}
		if parent < len(t.levels[level+1]) {
			t.levels[level+1][parent] = next
		} else {
			t.levels[level+1] = append(t.levels[level+1], next)
		}
		index = parent
	}
}

// growDepth raises the tree depth until 2^depth can hold newSize leaves,
// allocating level slots as needed. Depth never shrinks; leaf indices
// must stay stable for outstanding proofs.
func (t *LeanIMT[V]) growDepth(newSize int) {
	for 1<<t.depth < newSize {
		t.depth++
	}
	for len(t.levels) <= t.depth {
		t.levels = append(t.levels, nil)
	}
}

// siblingCount returns how many levels of the path from the given leaf
// index to the root currently have a sibling. This is the number of
// entries a valid sibling path for that leaf must carry.
func (t *LeanIMT[V]) siblingCount(index int) int {
	n := 0
	for level := 0; level < t.depth; level++ {
		if index^1 < len(t.levels[level]) {
			n++
		}
		index >>= 1
	}
	return n
}

// pathRoot recombines the given leaf with the supplied sibling nodes
// along the path from index, determining sibling existence from live
// level widths. The caller has already checked len(siblings) with
// siblingCount, so every indexed access is in range.
func (t *LeanIMT[V]) pathRoot(leaf V, index int, siblings []V) V {
	node := leaf
	s := 0
	for level := 0; level < t.depth; level++ {
		if index^1 < len(t.levels[level]) {
			if index&1 == 1 {
				node = t.combine(siblings[s], node)
			} else {
				node = t.combine(node, siblings[s])
			}
			s++
		}
		index >>= 1
	}
	return node
}

// validate checks the structural invariants of the whole tree: level
// widths halve (rounding up) toward a single root, and every parent is
// the lean combination of its children. Used after reconstructing a
// tree from a snapshot, where the combiner may not match the one that
// produced it.
func (t *LeanIMT[V]) validate() error {
	if len(t.levels) != t.depth+1 {
		return fmt.Errorf("tree with depth %d has %d levels", t.depth, len(t.levels))
	}
	if len(t.levels[0]) != t.size {
		return fmt.Errorf("tree with size %d has %d leaves", t.size, len(t.levels[0]))
	}
	if t.size > 0 && 1<<t.depth < t.size {
		return fmt.Errorf("depth %d cannot hold %d leaves", t.depth, t.size)
	}
	for level := 0; level < t.depth; level++ {
		width := len(t.levels[level])
		parentWidth := (width + 1) >> 1
		if len(t.levels[level+1]) != parentWidth {
			return fmt.Errorf("level %d has %d nodes, expected %d", level+1, len(t.levels[level+1]), parentWidth)
		}
		for i := 0; i < parentWidth; i++ {
			var want V
			if 2*i+1 < width {
				want = t.combine(t.levels[level][2*i], t.levels[level][2*i+1])
			} else {
				want = t.levels[level][2*i]
			}
			if t.levels[level+1][i] != want {
				return fmt.Errorf("level %d node %d does not match its children; ensure using same combine function as source", level+1, i)
			}
		}
	}
	return nil
}

func (t *LeanIMT[V]) dump() {
	for level := len(t.levels) - 1; level >= 0; level-- {
		fmt.Printf("%*s%v\n", 2*(len(t.levels)-1-level), "", t.levels[level])
	}
}
