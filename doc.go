/*
Package leanimt provides a Lean Incremental Merkle Tree (LeanIMT): an
append-biased binary commitment tree that maintains a verifiable root
over an ordered set of leaves.  Leaves are opaque values combined by a
caller-supplied two-input hash function, so the same tree can back
different commitment schemes (Poseidon for zk circuits, blake2b for
plain integrity, or anything else).  Snapshots of a tree can be stored
in anything, like a filesystem, KV store, or blob store.

What makes it "lean"

A LeanIMT never pads.  Where a classic incremental Merkle tree fills
missing children with precomputed zero hashes, a lean tree passes an
unpaired node up to the next level unchanged.  The tree's depth grows
dynamically with the number of leaves (ceil(log2(size))), and proofs
skip the levels where a leaf's path has no sibling, so both hashing and
verification cost only what the populated part of the tree requires.
The structure is described in "LeanIMT: An Optimized Incremental Merkle
Tree" from the zk-kit project
(https://github.com/privacy-scaling-explorations/zk-kit).

Mutation by proof

Update and Remove take the sibling path for the target leaf and verify
that it reproduces the current root before writing anything, so a stale
or forged proof can never corrupt the tree.  Remove replaces the leaf
with the zero value of the node type rather than deleting the slot,
keeping every other leaf's index (and outstanding proofs for unrelated
leaves) stable.

Concurrency

A tree has a single-writer model: mutating calls (Insert, InsertMany,
Update, Remove) must be serialized by the caller.  Reads may run
concurrently with each other but not with a mutation.  Clone creates an
independent copy that is cheap relative to rebuilding and safe to hand
to another goroutine.
*/
package leanimt
