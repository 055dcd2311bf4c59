package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/multivec/backend"
	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/vector"
)

func open(t *testing.T, config Config) *Backend {
	t.Helper()
	b, err := Open(context.Background(), ":memory:", config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func seed(t *testing.T, b *Backend) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, b.Create(ctx, "docs", 2))
	require.NoError(t, b.Insert(ctx, "docs", []vector.Record{
		{VectorID: 0, DocID: 0, Embedding: vector.Embedding{1, 0}},
		{VectorID: 1, DocID: 0, Embedding: vector.Embedding{0, 1}},
		{VectorID: 2, DocID: 1, Embedding: vector.Embedding{1, 1}},
		{VectorID: 3, DocID: 5, Embedding: vector.Embedding{2, 0}},
	}))
	require.NoError(t, b.BuildIndex(ctx, "docs"))
}

func TestListDistinctValues(t *testing.T) {
	b := open(t, Config{})
	seed(t, b)
	ctx := context.Background()

	docs, err := b.ListDistinctValues(ctx, "docs", "doc")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 5}, docs)

	ids, err := b.ListDistinctValues(ctx, "docs", "id")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 3}, ids)

	_, err = b.ListDistinctValues(ctx, "docs", "vector")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = b.ListDistinctValues(ctx, "missing", "doc")
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestFilteredKNN(t *testing.T) {
	b := open(t, Config{})
	seed(t, b)
	ctx := context.Background()
	query := vector.Embedding{1, 0}

	testCases := []struct {
		description string
		filter      string
		k           int
		expect      []backend.Hit
	}{
		{description: "single doc", filter: "doc == 0", k: 1, expect: []backend.Hit{{ID: 0, Distance: 1}}},
		{description: "doc without rows", filter: "doc == 9", k: 1, expect: []backend.Hit{}},
		{description: "compound predicate", filter: "doc >= 1 and not (id == 3)", k: 5, expect: []backend.Hit{{ID: 2, Distance: 1}}},
		{description: "ties by ascending id", filter: "doc < 2", k: 2, expect: []backend.Hit{{ID: 0, Distance: 1}, {ID: 2, Distance: 1}}},
		{description: "no filter", filter: "", k: 2, expect: []backend.Hit{{ID: 3, Distance: 2}, {ID: 0, Distance: 1}}},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			hits, err := b.FilteredKNN(ctx, "docs", "vector", query, tc.filter, tc.k)
			require.NoError(t, err)
			require.Len(t, hits, len(tc.expect))
			for i := range tc.expect {
				assert.Equal(t, tc.expect[i], hits[i])
			}
		})
	}
}

func TestFilteredKNN_L2(t *testing.T) {
	b := open(t, Config{Metric: vector.MetricL2})
	seed(t, b)
	hits, err := b.FilteredKNN(context.Background(), "docs", "vector", vector.Embedding{2, 0}, "", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(3), hits[0].ID)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-6)
	assert.Equal(t, int64(0), hits[1].ID)
}

func TestFilteredKNN_CosineSkipsZeroVectors(t *testing.T) {
	b := open(t, Config{Metric: vector.MetricCosine})
	ctx := context.Background()
	require.NoError(t, b.Create(ctx, "docs", 2))
	require.NoError(t, b.Insert(ctx, "docs", []vector.Record{
		{VectorID: 0, DocID: 0, Embedding: vector.Embedding{0, 0}},
		{VectorID: 1, DocID: 1, Embedding: vector.Embedding{2, 0}},
		{VectorID: 2, DocID: 1, Embedding: vector.Embedding{0, 0}},
	}))

	hits, err := b.FilteredKNN(ctx, "docs", "vector", vector.Embedding{1, 0}, "", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Distance, 1e-6)

	hits, err = b.FilteredKNN(ctx, "docs", "vector", vector.Embedding{1, 0}, "doc == 0", 1)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFilteredKNN_Errors(t *testing.T) {
	b := open(t, Config{})
	seed(t, b)
	ctx := context.Background()

	_, err := b.FilteredKNN(ctx, "docs", "vector", vector.Embedding{1, 0}, "", 0)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = b.FilteredKNN(ctx, "docs", "vector", vector.Embedding{1, 0}, "doc ==", 1)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = b.FilteredKNN(ctx, "docs", "vector", vector.Embedding{1, 0}, "vector == 1", 1)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = b.FilteredKNN(ctx, "docs", "doc", vector.Embedding{1, 0}, "", 1)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = b.FilteredKNN(ctx, "docs", "vector", vector.Embedding{1}, "", 1)
	assert.ErrorIs(t, err, errs.ErrSchema)
	_, err = b.FilteredKNN(ctx, `docs"; DROP TABLE docs; --`, "vector", vector.Embedding{1, 0}, "", 1)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestInsert_DimensionMismatchRollsBack(t *testing.T) {
	b := open(t, Config{})
	ctx := context.Background()
	require.NoError(t, b.Create(ctx, "docs", 2))
	err := b.Insert(ctx, "docs", []vector.Record{
		{VectorID: 0, DocID: 0, Embedding: vector.Embedding{1, 0}},
		{VectorID: 1, DocID: 0, Embedding: vector.Embedding{1}},
	})
	assert.ErrorIs(t, err, errs.ErrSchema)

	ids, err := b.ListDistinctValues(ctx, "docs", "id")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCreate_DropsExisting(t *testing.T) {
	b := open(t, Config{})
	seed(t, b)
	ctx := context.Background()
	require.NoError(t, b.Create(ctx, "docs", 3))
	docs, err := b.ListDistinctValues(ctx, "docs", "doc")
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = b.FilteredKNN(ctx, "docs", "vector", vector.Embedding{1, 0}, "", 1)
	assert.ErrorIs(t, err, errs.ErrSchema, "dimension follows the new collection")
}

func TestFileDatabase_Reopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "vectors.sqlite")
	ctx := context.Background()

	b, err := Open(ctx, dsn, Config{Schema: backend.Schema{DocField: "document"}})
	require.NoError(t, err)
	require.NoError(t, b.Create(ctx, "docs", 1))
	require.NoError(t, b.Insert(ctx, "docs", []vector.Record{
		{VectorID: 10, DocID: 7, Embedding: vector.Embedding{0.5}},
	}))
	require.NoError(t, b.BuildIndex(ctx, "docs"))
	require.NoError(t, b.Close())

	b, err = Open(ctx, dsn, Config{Schema: backend.Schema{DocField: "document"}})
	require.NoError(t, err)
	defer b.Close()
	hits, err := b.FilteredKNN(ctx, "docs", "vector", vector.Embedding{2}, "document == 7", 1)
	require.NoError(t, err)
	assert.Equal(t, []backend.Hit{{ID: 10, Distance: 1}}, hits)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), nil, Config{})
	assert.Error(t, err)

	_, err = Open(context.Background(), ":memory:", Config{Metric: "HAMMING"})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = Open(context.Background(), ":memory:", Config{Schema: backend.Schema{DocField: "doc id"}})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}
