// Package blake2b provides a blake2b-256 combiner over lowercase-hex
// node values.
package blake2b

import (
	"encoding/hex"

	simd "github.com/minio/blake2b-simd"
)

// Combine hashes the concatenation of the two nodes and returns the
// digest as a lowercase-hex string.
func Combine(a, b string) string {
	sum := simd.Sum256(append([]byte(a), []byte(b)...))
	return hex.EncodeToString(sum[:])
}
