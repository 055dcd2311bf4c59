// Package index defines a minimal abstraction for vector indexes that can be
// built from embeddings and queried for kNN under a row filter.
// Implementations in this module include a brute-force baseline.
package index
