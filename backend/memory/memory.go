// Package memory implements an in-process backend: rows are kept in memory,
// searched exactly through a brute-force index, and filtered through a
// roaring posting list per document.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/viant/multivec/backend"
	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/filter"
	"github.com/viant/multivec/index"
	"github.com/viant/multivec/index/bruteforce"
	"github.com/viant/multivec/vector"
)

const (
	opCreate = "memory: create"
	opInsert = "memory: insert"
	opList   = "memory: list"
	opSearch = "memory: search"
)

// Option configures a Backend.
type Option func(*Backend)

// WithMetric sets the ranking metric (default IP).
func WithMetric(metric vector.Metric) Option {
	return func(b *Backend) { b.metric = metric }
}

// WithSchema sets the field names.
func WithSchema(schema backend.Schema) Option {
	return func(b *Backend) { b.schema = schema.WithDefaults() }
}

// Backend is a goroutine-safe in-memory backend. Hits tie-break by insertion
// order.
type Backend struct {
	metric      vector.Metric
	schema      backend.Schema
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dim      int
	ids      []int64
	docs     []int64
	index    index.Index
	postings map[int64]*roaring.Bitmap
}

// New returns an empty Backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		metric:      vector.MetricIP,
		schema:      backend.DefaultSchema(),
		collections: map[string]*collection{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Create replaces collection with an empty one of dimension dim.
func (b *Backend) Create(_ context.Context, name string, dim int) error {
	if dim < 0 {
		return errs.InvalidArgument(opCreate, "negative dimension %d", dim)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collections[name] = &collection{
		dim:      dim,
		index:    bruteforce.New(b.metric),
		postings: map[int64]*roaring.Bitmap{},
	}
	return nil
}

// Insert appends records to collection.
func (b *Backend) Insert(_ context.Context, name string, records []vector.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.collection(opInsert, name)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if len(rec.Embedding) != c.dim {
			return &errs.Error{Kind: errs.ErrSchema, Op: opInsert, Record: rec.VectorID,
				Msg: "embedding dimension does not match collection"}
		}
	}
	for _, rec := range records {
		pos := uint32(len(c.ids))
		if err := c.index.Append(rec.VectorID, rec.Embedding); err != nil {
			return errs.Wrap(errs.ErrSchema, opInsert, err)
		}
		c.ids = append(c.ids, rec.VectorID)
		c.docs = append(c.docs, rec.DocID)
		bm, ok := c.postings[rec.DocID]
		if !ok {
			bm = roaring.New()
			c.postings[rec.DocID] = bm
		}
		bm.Add(pos)
	}
	return nil
}

// BuildIndex compacts the posting lists. Rows are searchable as soon as
// they are inserted.
func (b *Backend) BuildIndex(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, err := b.collection("memory: build index", name)
	if err != nil {
		return err
	}
	for _, bm := range c.postings {
		bm.RunOptimize()
	}
	return nil
}

// ListDistinctValues returns the distinct ids or doc ids in ascending order.
func (b *Backend) ListDistinctValues(_ context.Context, name, field string) ([]int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, err := b.collection(opList, name)
	if err != nil {
		return nil, err
	}
	var out []int64
	switch field {
	case b.schema.DocField:
		out = make([]int64, 0, len(c.postings))
		for doc := range c.postings {
			out = append(out, doc)
		}
		slices.Sort(out)
	case b.schema.IDField:
		out = slices.Clone(c.ids)
		slices.Sort(out)
		out = slices.Compact(out)
	default:
		return nil, errs.InvalidArgument(opList, "field %q is not a scalar field of %q", field, name)
	}
	return out, nil
}

// FilteredKNN runs an exact search over the rows matching filterExpr. An
// empty filter matches every row.
func (b *Backend) FilteredKNN(_ context.Context, name, field string, query vector.Embedding, filterExpr string, k int) ([]backend.Hit, error) {
	if err := backend.ValidateK(opSearch, k); err != nil {
		return nil, err
	}
	if field != b.schema.VectorField {
		return nil, errs.InvalidArgument(opSearch, "field %q is not the vector field of %q", field, name)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, err := b.collection(opSearch, name)
	if err != nil {
		return nil, err
	}
	if len(query) != c.dim {
		return nil, errs.Schema(opSearch, "query dimension %d does not match collection dimension %d", len(query), c.dim)
	}
	accept, err := b.accept(c, filterExpr)
	if err != nil {
		return nil, err
	}
	ids, scores, err := c.index.Query(query, k, accept)
	if err != nil {
		return nil, errs.Wrap(errs.ErrSchema, opSearch, err)
	}
	hits := make([]backend.Hit, len(ids))
	for i := range ids {
		hits[i] = backend.Hit{ID: ids[i], Distance: scores[i]}
	}
	return hits, nil
}

// accept compiles filterExpr into a row predicate. `doc == X` is answered
// from the posting list.
func (b *Backend) accept(c *collection, filterExpr string) (func(int) bool, error) {
	if filterExpr == "" {
		return nil, nil
	}
	expr, err := filter.Parse(filterExpr, b.schema.Scalars()...)
	if err != nil {
		return nil, err
	}
	if doc, ok := filter.DocEquals(expr, b.schema.DocField); ok {
		bm, ok := c.postings[doc]
		if !ok {
			return func(int) bool { return false }, nil
		}
		return func(pos int) bool { return bm.Contains(uint32(pos)) }, nil
	}
	return func(pos int) bool {
		ok, _ := expr.Eval(func(f string) (int64, bool) {
			switch f {
			case b.schema.IDField:
				return c.ids[pos], true
			case b.schema.DocField:
				return c.docs[pos], true
			}
			return 0, false
		})
		return ok
	}, nil
}

// Len returns the number of rows in collection, or 0 if it does not exist.
func (b *Backend) Len(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if c, ok := b.collections[name]; ok {
		return len(c.ids)
	}
	return 0
}

// Close releases all collections.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collections = map[string]*collection{}
	return nil
}

func (b *Backend) collection(op, name string) (*collection, error) {
	c, ok := b.collections[name]
	if !ok {
		return nil, errs.InvalidArgument(op, "collection %q does not exist", name)
	}
	return c, nil
}

var _ backend.Backend = (*Backend)(nil)
