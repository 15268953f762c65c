package leanimt

import "errors"

// Errors reported by tree operations. Call sites wrap these with
// operation context; match with errors.Is.
var (
	// ErrEmptyBatch is returned by InsertMany for a batch with no leaves.
	ErrEmptyBatch = errors.New("empty batch")
	// ErrDuplicateLeaf is returned when an inserted or updated-to value
	// is already a leaf of the tree.
	ErrDuplicateLeaf = errors.New("leaf already exists")
	// ErrReservedLeaf is returned when inserting the zero value of the
	// node type, which is reserved as the removal tombstone.
	ErrReservedLeaf = errors.New("leaf is the reserved zero value")
	// ErrLeafNotFound is returned when the target of an operation is not
	// a current leaf of the tree.
	ErrLeafNotFound = errors.New("leaf not found")
	// ErrLeafOutOfRange is returned for a leaf index outside [0, size).
	ErrLeafOutOfRange = errors.New("leaf index out of range")
	// ErrInvalidProofLength is returned when a sibling path does not
	// have one entry per level of the leaf's path that has a sibling.
	ErrInvalidProofLength = errors.New("wrong number of sibling nodes")
	// ErrInvalidProof is returned when a sibling path fails to reproduce
	// the current root, signalling a stale or forged proof.
	ErrInvalidProof = errors.New("sibling nodes do not reproduce the root")
)
