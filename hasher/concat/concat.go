// Package concat provides a combiner that joins nodes with a
// separator. It is not a cryptographic hash; it exists so tests and
// examples can read the tree structure directly off the root.
package concat

// New returns a combiner joining the two nodes with the given separator.
func New(sep string) func(a, b string) string {
	return func(a, b string) string {
		return a + sep + b
	}
}
