// Package poseidon provides a Poseidon combiner over decimal-string
// field elements, the hash LeanIMT deployments commonly commit with.
package poseidon

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/iden3/go-iden3-crypto/utils"
)

// Check reports whether the given node value is usable as a Poseidon
// input: a decimal integer inside the BN254 scalar field. Validate
// leaves with Check before inserting them; Combine panics on values
// that fail it.
func Check(v string) error {
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return fmt.Errorf("node %q is not a decimal integer", v)
	}
	if n.Sign() < 0 || !utils.CheckBigIntInField(n) {
		return fmt.Errorf("node %q is outside the field", v)
	}
	return nil
}

// Combine hashes the two nodes with Poseidon and returns the digest as
// a decimal string. Inputs must satisfy Check.
func Combine(a, b string) string {
	left, ok := new(big.Int).SetString(a, 10)
	if !ok {
		panic(fmt.Sprintf("poseidon: node %q is not a decimal integer", a))
	}
	right, ok := new(big.Int).SetString(b, 10)
	if !ok {
		panic(fmt.Sprintf("poseidon: node %q is not a decimal integer", b))
	}
	sum, err := poseidon.Hash([]*big.Int{left, right})
	if err != nil {
		panic(fmt.Sprintf("poseidon: %v", err))
	}
	return sum.String()
}
