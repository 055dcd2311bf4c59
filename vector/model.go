package vector

// Embedding is a single vector of float64 components. Every embedding in a
// container or query shares the same dimension.
type Embedding []float64

// Document is a multi-vector document: an ordered set of embeddings that
// share a doc id. Order follows the original record order.
type Document []Embedding

// Dim returns the length of the first non-empty embedding, or 0.
func (d Document) Dim() int {
	for _, e := range d {
		if len(e) > 0 {
			return len(e)
		}
	}
	return 0
}

// Record is one flattened (vector id, doc id, embedding) triple as stored in
// a container file or a backend collection.
type Record struct {
	VectorID  int64
	DocID     int64
	Embedding Embedding
}

// Float32s returns a float32 projection of e, as stored by FLOAT_VECTOR
// backends.
func (e Embedding) Float32s() []float32 {
	out := make([]float32, len(e))
	for i, v := range e {
		out[i] = float32(v)
	}
	return out
}
