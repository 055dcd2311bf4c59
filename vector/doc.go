// Package vector defines the multi-vector data model shared across this
// module. It includes:
//   - Embedding, Document and Record types
//   - Metric (IP, L2, COSINE) with ordering rules used by kNN backends
//   - Embedding BLOB encoding for SQL storage
//   - Dot product and distance functions
package vector
