package maxsim

import (
	"context"
	"math"
	"slices"

	"github.com/viant/multivec/backend"
	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/filter"
	"github.com/viant/multivec/vector"
)

// Ranker ranks a bound corpus against one query at a time. Implementations
// keep no per-query state.
type Ranker interface {
	Rank(ctx context.Context, query vector.Document, topK int) ([]int64, error)
}

// InMemory ranks a fully decoded corpus.
type InMemory struct {
	corpus map[int64]vector.Document
	opts   Options
}

// NewInMemory binds corpus. The map is read, never modified.
func NewInMemory(corpus map[int64]vector.Document, opts Options) *InMemory {
	return &InMemory{corpus: corpus, opts: opts}
}

// Rank scores every corpus document. ctx is checked once before scoring.
func (r *InMemory) Rank(ctx context.Context, query vector.Document, topK int) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Rank(query, r.corpus, topK, r.opts)
}

// Delegated ranks a corpus stored in a backend. The per-token maximum comes
// from a filtered top-1 search restricted to one document.
type Delegated struct {
	searcher   backend.Searcher
	collection string
	schema     backend.Schema
	candidates []int64
	opts       Options
}

// NewDelegated lists the candidate documents of collection once.
func NewDelegated(ctx context.Context, searcher backend.Searcher, collection string, schema backend.Schema, opts Options) (*Delegated, error) {
	schema = schema.WithDefaults()
	docs, err := searcher.ListDistinctValues(ctx, collection, schema.DocField)
	if err != nil {
		return nil, err
	}
	docs = slices.Clone(docs)
	slices.Sort(docs)
	return &Delegated{
		searcher:   searcher,
		collection: collection,
		schema:     schema,
		candidates: slices.Compact(docs),
		opts:       opts,
	}, nil
}

// Candidates returns the candidate doc ids in ascending order.
func (r *Delegated) Candidates() []int64 { return r.candidates }

// Rank issues one search per (candidate, query vector) pair, serially, and
// sums the returned scores per candidate. A candidate for which the backend
// returns no hit scores -Inf. ctx is checked before each candidate.
func (r *Delegated) Rank(ctx context.Context, query vector.Document, topK int) ([]int64, error) {
	if err := validate(query, len(r.candidates), topK, r.opts); err != nil {
		return nil, err
	}
	scored := make([]Scored, 0, len(r.candidates))
	for _, doc := range r.candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := r.score(ctx, query, doc)
		if err != nil {
			return nil, err
		}
		scored = append(scored, Scored{DocID: doc, Score: s})
	}
	return Top(scored, topK), nil
}

func (r *Delegated) score(ctx context.Context, query vector.Document, doc int64) (float64, error) {
	expr := filter.Equals(r.schema.DocField, doc).String()
	var total float64
	for _, q := range query {
		hits, err := r.searcher.FilteredKNN(ctx, r.collection, r.schema.VectorField, q, expr, 1)
		if err != nil {
			return 0, err
		}
		if len(hits) == 0 {
			return math.Inf(-1), nil
		}
		total += hits[0].Distance
	}
	return total, nil
}

// Sources are what New binds a strategy to.
type Sources struct {
	// Corpus feeds InMemory.
	Corpus map[int64]vector.Document
	// Searcher, Collection and Schema feed Delegated.
	Searcher   backend.Searcher
	Collection string
	Schema     backend.Schema
}

// New builds the Ranker for mode.
func New(ctx context.Context, mode Mode, src Sources, opts Options) (Ranker, error) {
	switch mode {
	case ModeInMemory:
		if src.Corpus == nil {
			return nil, errs.InvalidArgument("maxsim: new", "in-memory mode requires a corpus")
		}
		return NewInMemory(src.Corpus, opts), nil
	case ModeDelegated:
		if src.Searcher == nil {
			return nil, errs.InvalidArgument("maxsim: new", "delegated mode requires a searcher")
		}
		return NewDelegated(ctx, src.Searcher, src.Collection, src.Schema, opts)
	}
	return nil, errs.InvalidArgument("maxsim: new", "unrecognized mode %q", mode)
}
