package maxsim

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/multivec/backend"
	"github.com/viant/multivec/backend/memory"
	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/vector"
)

func exampleCorpus() map[int64]vector.Document {
	return map[int64]vector.Document{
		0: {{1, 0}, {0, 1}},
		1: {{1, 1}},
	}
}

func exampleQuery() vector.Document { return vector.Document{{1, 0}, {0, 1}} }

func TestScore_Example(t *testing.T) {
	corpus := exampleCorpus()
	for id, want := range map[int64]float64{0: 2, 1: 2} {
		got, err := Score(exampleQuery(), corpus[id])
		require.NoError(t, err)
		assert.Equal(t, want, got, "doc %d", id)
	}
}

func TestRank_ExampleTieBreak(t *testing.T) {
	ids, err := Rank(exampleQuery(), exampleCorpus(), 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, ids)

	ids, err = Rank(exampleQuery(), exampleCorpus(), 2, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, ids)
}

func TestBest_FirstOccurrence(t *testing.T) {
	best, at := Best(vector.Embedding{1, 0}, vector.Document{{0, 1}, {2, 0}, {2, 5}})
	assert.Equal(t, 2.0, best)
	assert.Equal(t, 1, at)

	best, at = Best(vector.Embedding{1}, nil)
	assert.True(t, math.IsInf(best, -1))
	assert.Equal(t, -1, at)
}

func TestScore_EmptyInputs(t *testing.T) {
	s, err := Score(exampleQuery(), vector.Document{})
	require.NoError(t, err)
	assert.True(t, math.IsInf(s, -1))

	s, err = Score(vector.Document{}, vector.Document{{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s)
}

func TestScore_DimensionMismatch(t *testing.T) {
	_, err := Score(vector.Document{{1, 0}}, vector.Document{{1, 0}, {1, 0, 0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrSchema)
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, int64(1), e.Record)

	_, err = Score(vector.Document{{1, 0}, {1}}, vector.Document{{1, 0}})
	assert.ErrorIs(t, err, errs.ErrSchema)
}

func randomCorpus(rng *rand.Rand, docs, dim int) map[int64]vector.Document {
	corpus := make(map[int64]vector.Document, docs)
	for i := 0; i < docs; i++ {
		n := 1 + rng.Intn(4)
		doc := make(vector.Document, n)
		for j := range doc {
			doc[j] = randomEmbedding(rng, dim)
		}
		corpus[int64(i*3)] = doc
	}
	return corpus
}

func randomEmbedding(rng *rand.Rand, dim int) vector.Embedding {
	e := make(vector.Embedding, dim)
	for k := range e {
		// Small integers keep sums exact so permutations compare equal.
		e[k] = float64(rng.Intn(7) - 3)
	}
	return e
}

func TestRank_TokenOrderInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	corpus := randomCorpus(rng, 20, 4)
	query := vector.Document{randomEmbedding(rng, 4), randomEmbedding(rng, 4), randomEmbedding(rng, 4)}
	reversed := vector.Document{query[2], query[1], query[0]}

	a, err := Rank(query, corpus, 10, Options{})
	require.NoError(t, err)
	b, err := Rank(reversed, corpus, 10, Options{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestScore_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	query := vector.Document{randomEmbedding(rng, 3), randomEmbedding(rng, 3)}
	doc := vector.Document{randomEmbedding(rng, 3)}
	prev, err := Score(query, doc)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		doc = append(doc, randomEmbedding(rng, 3))
		next, err := Score(query, doc)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, next, prev)
		prev = next
	}
}

func TestRank_Deterministic(t *testing.T) {
	// Every document scores the same, so order is purely by doc id.
	corpus := map[int64]vector.Document{}
	for _, id := range []int64{42, 7, 19, 3, 88, 1} {
		corpus[id] = vector.Document{{1, 1}}
	}
	for i := 0; i < 20; i++ {
		ids, err := Rank(vector.Document{{1, 0}}, corpus, 4, Options{})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3, 7, 19}, ids)
	}
}

func TestRank_EmptyDocumentRanksLast(t *testing.T) {
	corpus := map[int64]vector.Document{0: {}, 1: {{-5, -5}}}
	ids, err := Rank(vector.Document{{1, 1}}, corpus, 2, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 0}, ids)
}

func TestRank_Errors(t *testing.T) {
	testCases := []struct {
		description string
		query       vector.Document
		corpus      map[int64]vector.Document
		topK        int
		opts        Options
		expect      []int64
		kind        error
	}{
		{description: "zero top_k", query: exampleQuery(), corpus: exampleCorpus(), topK: 0, kind: errs.ErrInvalidArgument},
		{description: "negative top_k with best effort", query: exampleQuery(), corpus: exampleCorpus(), topK: -1, opts: Options{BestEffort: true}, kind: errs.ErrInvalidArgument},
		{description: "empty query", query: vector.Document{}, corpus: exampleCorpus(), topK: 1, kind: errs.ErrInvalidArgument},
		{description: "empty corpus", query: exampleQuery(), corpus: nil, topK: 1, kind: errs.ErrInvalidArgument},
		{description: "empty corpus best effort", query: exampleQuery(), corpus: nil, topK: 1, opts: Options{BestEffort: true}, expect: []int64{}},
		{description: "top_k beyond corpus", query: exampleQuery(), corpus: exampleCorpus(), topK: 3, kind: errs.ErrInvalidArgument},
		{description: "top_k beyond corpus best effort", query: exampleQuery(), corpus: exampleCorpus(), topK: 3, opts: Options{BestEffort: true}, expect: []int64{0, 1}},
		{description: "dimension mismatch", query: vector.Document{{1, 0, 0}}, corpus: exampleCorpus(), topK: 1, kind: errs.ErrSchema},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			ids, err := Rank(tc.query, tc.corpus, tc.topK, tc.opts)
			if tc.kind != nil {
				assert.ErrorIs(t, err, tc.kind)
				assert.Nil(t, ids)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expect, ids)
		})
	}
}

func loadMemory(t *testing.T, corpus map[int64]vector.Document) *memory.Backend {
	t.Helper()
	ctx := context.Background()
	b := memory.New()
	dim := 0
	var records []vector.Record
	var vid int64
	for id, doc := range corpus {
		for _, e := range doc {
			dim = len(e)
			records = append(records, vector.Record{VectorID: vid, DocID: id, Embedding: e})
			vid++
		}
	}
	require.NoError(t, b.Create(ctx, "corpus", dim))
	require.NoError(t, b.Insert(ctx, "corpus", records))
	require.NoError(t, b.BuildIndex(ctx, "corpus"))
	return b
}

func TestStrategyEquivalence(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(3))
	corpus := randomCorpus(rng, 25, 5)
	mem := loadMemory(t, corpus)

	inMemory, err := New(ctx, ModeInMemory, Sources{Corpus: corpus}, Options{})
	require.NoError(t, err)
	delegated, err := New(ctx, ModeDelegated, Sources{Searcher: mem, Collection: "corpus"}, Options{})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		query := vector.Document{randomEmbedding(rng, 5), randomEmbedding(rng, 5)}
		want, err := inMemory.Rank(ctx, query, 10)
		require.NoError(t, err)
		got, err := delegated.Rank(ctx, query, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got, "query %d", i)
	}
}

type recordingSearcher struct {
	docs    []int64
	filters []string
	empty   map[string]bool
	fail    error
}

func (s *recordingSearcher) ListDistinctValues(context.Context, string, string) ([]int64, error) {
	return s.docs, nil
}

func (s *recordingSearcher) FilteredKNN(_ context.Context, _, field string, query vector.Embedding, expr string, k int) ([]backend.Hit, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	s.filters = append(s.filters, expr)
	if field != "vector" || k != 1 || s.empty[expr] {
		return nil, nil
	}
	return []backend.Hit{{ID: 0, Distance: query[0]}}, nil
}

func TestDelegated_CallPattern(t *testing.T) {
	ctx := context.Background()
	s := &recordingSearcher{docs: []int64{5, 2, 5}, empty: map[string]bool{"doc == 5": true}}
	r, err := NewDelegated(ctx, s, "c", backend.Schema{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 5}, r.Candidates())

	ids, err := r.Rank(ctx, vector.Document{{1}, {2}, {3}}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 5}, ids, "a document without hits ranks last")
	// doc 5 stops after its first empty answer.
	assert.Equal(t, []string{"doc == 2", "doc == 2", "doc == 2", "doc == 5"}, s.filters)
}

func TestDelegated_Errors(t *testing.T) {
	ctx := context.Background()
	s := &recordingSearcher{docs: []int64{1}}
	r, err := NewDelegated(ctx, s, "c", backend.Schema{}, Options{})
	require.NoError(t, err)

	_, err = r.Rank(ctx, vector.Document{{1}}, 2)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	s.fail = errs.InvalidArgument("stub", "malformed filter")
	_, err = r.Rank(ctx, vector.Document{{1}}, 1)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	empty, err := NewDelegated(ctx, &recordingSearcher{}, "c", backend.Schema{}, Options{})
	require.NoError(t, err)
	_, err = empty.Rank(ctx, vector.Document{{1}}, 1)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestInMemory_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewInMemory(exampleCorpus(), Options{}).Rank(ctx, exampleQuery(), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelegated_Cancelled(t *testing.T) {
	s := &recordingSearcher{docs: []int64{1, 2}}
	r, err := NewDelegated(context.Background(), s, "c", backend.Schema{}, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Rank(ctx, vector.Document{{1}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.filters)
}

func TestParseMode(t *testing.T) {
	for name, want := range map[string]Mode{
		"inmemory":  ModeInMemory,
		"ByNumpy":   ModeInMemory,
		" memory ":  ModeInMemory,
		"delegated": ModeDelegated,
		"ByDB":      ModeDelegated,
		"DB":        ModeDelegated,
	} {
		got, err := ParseMode(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseMode("gpu")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, Mode("gpu"), Sources{Corpus: exampleCorpus()}, Options{})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = New(ctx, ModeInMemory, Sources{}, Options{})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = New(ctx, ModeDelegated, Sources{}, Options{})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}
