package index

import "github.com/viant/multivec/vector"

// Index defines an exact or approximate kNN index over (id, embedding)
// pairs.
type Index interface {
	// Build constructs the index from the given ids and vectors.
	// ids and vectors must have the same length and a uniform dimension.
	Build(ids []int64, vectors []vector.Embedding) error

	// Append adds one vector after the existing ones. Its dimension must
	// match the vectors already indexed.
	Append(id int64, vec vector.Embedding) error

	// Query runs a kNN search with the provided query vector and returns up
	// to k matches as parallel slices of ids and metric values, best first.
	// When accept is non-nil only positions for which it returns true are
	// considered; positions index the slices passed to Build.
	Query(query vector.Embedding, k int, accept func(pos int) bool) (ids []int64, scores []float64, err error)

	// Len returns the number of indexed vectors.
	Len() int
}
