// Package backend defines the capability surface the retrieval engine
// consumes from a vector database, plus batch loading of container files
// into a backend.
package backend

import (
	"context"

	"github.com/viant/multivec/vector"
)

// Default schema field names.
const (
	DefaultIDField     = "id"
	DefaultVectorField = "vector"
	DefaultDocField    = "doc"
)

// Hit is one kNN result. Distance is the backend metric value: a similarity
// for IP and COSINE, a distance for L2.
type Hit struct {
	ID       int64
	Distance float64
}

// Schema names the three fields of a collection.
type Schema struct {
	IDField     string
	VectorField string
	DocField    string
}

// DefaultSchema returns id, vector and doc.
func DefaultSchema() Schema {
	return Schema{IDField: DefaultIDField, VectorField: DefaultVectorField, DocField: DefaultDocField}
}

// WithDefaults fills empty field names.
func (s Schema) WithDefaults() Schema {
	if s.IDField == "" {
		s.IDField = DefaultIDField
	}
	if s.VectorField == "" {
		s.VectorField = DefaultVectorField
	}
	if s.DocField == "" {
		s.DocField = DefaultDocField
	}
	return s
}

// Scalars returns the filterable int64 fields.
func (s Schema) Scalars() []string { return []string{s.IDField, s.DocField} }

// Searcher is the read side of a backend.
type Searcher interface {
	// ListDistinctValues returns the distinct values of an int64 field in
	// ascending order.
	ListDistinctValues(ctx context.Context, collection, field string) ([]int64, error)
	// FilteredKNN returns up to k nearest rows of field to query among the
	// rows matching filterExpr, best first.
	FilteredKNN(ctx context.Context, collection, field string, query vector.Embedding, filterExpr string, k int) ([]Hit, error)
}

// Loader is the write side of a backend.
type Loader interface {
	// Create (re)creates an empty collection of the given dimension,
	// dropping any existing one.
	Create(ctx context.Context, collection string, dim int) error
	// Insert appends records.
	Insert(ctx context.Context, collection string, records []vector.Record) error
	// BuildIndex makes inserted rows searchable.
	BuildIndex(ctx context.Context, collection string) error
}

// Backend is a complete vector database.
type Backend interface {
	Searcher
	Loader
	Close() error
}
