// Package milvus implements the backend on a Milvus server, mirroring the
// collection layout of the benchmark: an INT64 primary key, a FLOAT_VECTOR
// field and an INT64 doc field, indexed FLAT (exact) or HNSW (approximate).
package milvus

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/viant/multivec/backend"
	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/filter"
	"github.com/viant/multivec/vector"
)

const (
	opCreate = "milvus: create"
	opInsert = "milvus: insert"
	opBuild  = "milvus: build index"
	opList   = "milvus: list"
	opSearch = "milvus: search"
)

// Index types.
const (
	IndexFlat = "FLAT"
	IndexHNSW = "HNSW"
)

// Client is the subset of client.Client used by the backend.
type Client interface {
	HasCollection(ctx context.Context, collName string) (bool, error)
	DropCollection(ctx context.Context, collName string, opts ...client.DropCollectionOption) error
	CreateCollection(ctx context.Context, schema *entity.Schema, shardsNum int32, opts ...client.CreateCollectionOption) error
	Insert(ctx context.Context, collName string, partitionName string, columns ...entity.Column) (entity.Column, error)
	Flush(ctx context.Context, collName string, async bool, opts ...client.FlushOption) error
	CreateIndex(ctx context.Context, collName string, fieldName string, idx entity.Index, async bool, opts ...client.IndexOption) error
	LoadCollection(ctx context.Context, collName string, async bool, opts ...client.LoadCollectionOption) error
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string,
		vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam,
		opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
	Query(ctx context.Context, collectionName string, partitionNames []string, expr string, outputFields []string,
		opts ...client.SearchQueryOptionFunc) (client.ResultSet, error)
	Close() error
}

// Config holds configuration for the Milvus backend.
type Config struct {
	// Address is the Milvus endpoint, e.g. "localhost:19530".
	Address string
	// Metric is the index and search metric (default: IP).
	Metric vector.Metric
	// IndexType is FLAT or HNSW (default: FLAT).
	IndexType string
	// M and EfConstruction tune HNSW builds (defaults: 32, 512).
	M              int
	EfConstruction int
	// Ef tunes HNSW searches (default: 32).
	Ef int
	// LoadTimeout bounds waiting for a collection to become searchable
	// (default: 5m).
	LoadTimeout time.Duration
	// Schema names the id, vector and doc fields.
	Schema backend.Schema
}

func (c Config) withDefaults() Config {
	if c.Metric == "" {
		c.Metric = vector.MetricIP
	}
	if c.IndexType == "" {
		c.IndexType = IndexFlat
	}
	c.IndexType = strings.ToUpper(c.IndexType)
	if c.M == 0 {
		c.M = 32
	}
	if c.EfConstruction == 0 {
		c.EfConstruction = 512
	}
	if c.Ef == 0 {
		c.Ef = 32
	}
	if c.LoadTimeout == 0 {
		c.LoadTimeout = 5 * time.Minute
	}
	c.Schema = c.Schema.WithDefaults()
	return c
}

// Backend talks to Milvus through a Client.
type Backend struct {
	client Client
	config Config
	metric entity.MetricType
}

// New creates a backend on an existing client.
func New(c Client, config Config) (*Backend, error) {
	config = config.withDefaults()
	metric, err := MetricType(config.Metric)
	if err != nil {
		return nil, err
	}
	if config.IndexType != IndexFlat && config.IndexType != IndexHNSW {
		return nil, errs.InvalidArgument("milvus: new", "unsupported index type %q", config.IndexType)
	}
	return &Backend{client: c, config: config, metric: metric}, nil
}

// Connect dials config.Address and returns a backend owning the client.
func Connect(ctx context.Context, config Config) (*Backend, error) {
	c, err := client.NewClient(ctx, client.Config{Address: config.Address})
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "milvus: connect", err)
	}
	b, err := New(c, config)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return b, nil
}

// MetricType maps a metric to its Milvus name.
func MetricType(metric vector.Metric) (entity.MetricType, error) {
	switch metric {
	case vector.MetricIP:
		return entity.IP, nil
	case vector.MetricL2:
		return entity.L2, nil
	case vector.MetricCosine:
		return entity.COSINE, nil
	}
	return "", errs.InvalidArgument("milvus: metric", "unsupported metric %q", metric)
}

// Create drops any existing collection and creates an empty one.
func (b *Backend) Create(ctx context.Context, collection string, dim int) error {
	if dim <= 0 {
		return errs.InvalidArgument(opCreate, "dimension must be positive, got %d", dim)
	}
	exists, err := b.client.HasCollection(ctx, collection)
	if err != nil {
		return errs.Wrap(errs.ErrIO, opCreate, err)
	}
	if exists {
		if err := b.client.DropCollection(ctx, collection); err != nil {
			return errs.Wrap(errs.ErrIO, opCreate, err)
		}
	}
	if err := b.client.CreateCollection(ctx, b.schema(collection, dim), entity.DefaultShardNumber,
		client.WithConsistencyLevel(entity.ClStrong)); err != nil {
		return errs.Wrap(errs.ErrIO, opCreate, err)
	}
	return nil
}

func (b *Backend) schema(collection string, dim int) *entity.Schema {
	s := b.config.Schema
	return entity.NewSchema().
		WithName(collection).
		WithDescription("multi-vector documents").
		WithAutoID(false).
		WithField(entity.NewField().WithName(s.IDField).WithDataType(entity.FieldTypeInt64).
			WithIsPrimaryKey(true).WithDescription("primary key")).
		WithField(entity.NewField().WithName(s.VectorField).WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim)).WithDescription("vector")).
		WithField(entity.NewField().WithName(s.DocField).WithDataType(entity.FieldTypeInt64).
			WithDescription("doc id"))
}

// Insert writes records as one column batch. Embeddings are stored as
// float32.
func (b *Backend) Insert(ctx context.Context, collection string, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}
	dim := len(records[0].Embedding)
	ids := make([]int64, len(records))
	docs := make([]int64, len(records))
	vecs := make([][]float32, len(records))
	for i, rec := range records {
		if len(rec.Embedding) != dim {
			return &errs.Error{Kind: errs.ErrSchema, Op: opInsert, Record: rec.VectorID,
				Msg: fmt.Sprintf("embedding dimension %d does not match batch dimension %d", len(rec.Embedding), dim)}
		}
		ids[i] = rec.VectorID
		docs[i] = rec.DocID
		vecs[i] = rec.Embedding.Float32s()
	}
	s := b.config.Schema
	_, err := b.client.Insert(ctx, collection, "",
		entity.NewColumnInt64(s.IDField, ids),
		entity.NewColumnFloatVector(s.VectorField, dim, vecs),
		entity.NewColumnInt64(s.DocField, docs),
	)
	return errs.Wrap(errs.ErrIO, opInsert, err)
}

// BuildIndex flushes, builds the configured index and loads the collection,
// waiting at most LoadTimeout for it to become searchable.
func (b *Backend) BuildIndex(ctx context.Context, collection string) error {
	if err := b.client.Flush(ctx, collection, false); err != nil {
		return errs.Wrap(errs.ErrIO, opBuild, err)
	}
	idx, err := b.index()
	if err != nil {
		return errs.Wrap(errs.ErrInvalidArgument, opBuild, err)
	}
	if err := b.client.CreateIndex(ctx, collection, b.config.Schema.VectorField, idx, false); err != nil {
		return errs.Wrap(errs.ErrIO, opBuild, err)
	}
	loadCtx, cancel := context.WithTimeout(ctx, b.config.LoadTimeout)
	defer cancel()
	if err := b.client.LoadCollection(loadCtx, collection, false); err != nil {
		return errs.Wrap(errs.ErrIO, opBuild, fmt.Errorf("load %s within %s: %w", collection, b.config.LoadTimeout, err))
	}
	return nil
}

func (b *Backend) index() (entity.Index, error) {
	if b.config.IndexType == IndexHNSW {
		return entity.NewIndexHNSW(b.metric, b.config.M, b.config.EfConstruction)
	}
	return entity.NewIndexFlat(b.metric)
}

func (b *Backend) searchParam() (entity.SearchParam, error) {
	if b.config.IndexType == IndexHNSW {
		return entity.NewIndexHNSWSearchParam(b.config.Ef)
	}
	return entity.NewIndexFlatSearchParam()
}

// ListDistinctValues queries field over every row and returns its distinct
// values in ascending order.
func (b *Backend) ListDistinctValues(ctx context.Context, collection, field string) ([]int64, error) {
	s := b.config.Schema
	if field != s.IDField && field != s.DocField {
		return nil, errs.InvalidArgument(opList, "field %q is not a scalar field of %q", field, collection)
	}
	expr := fmt.Sprintf("%s >= 0 or %s < 0", s.IDField, s.IDField)
	rs, err := b.client.Query(ctx, collection, nil, expr, []string{field})
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, opList, err)
	}
	var values []int64
	for _, col := range rs {
		if col.Name() != field {
			continue
		}
		c, ok := col.(*entity.ColumnInt64)
		if !ok {
			return nil, errs.Schema(opList, "field %q is %T, want int64", field, col)
		}
		values = append(values, c.Data()...)
	}
	slices.Sort(values)
	return slices.Compact(values), nil
}

// FilteredKNN runs one filtered search. Scores are as reported by Milvus:
// the similarity for IP and COSINE, the squared distance for L2.
func (b *Backend) FilteredKNN(ctx context.Context, collection, field string, query vector.Embedding, filterExpr string, k int) ([]backend.Hit, error) {
	if err := backend.ValidateK(opSearch, k); err != nil {
		return nil, err
	}
	expr, err := b.expression(filterExpr)
	if err != nil {
		return nil, err
	}
	sp, err := b.searchParam()
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidArgument, opSearch, err)
	}
	results, err := b.client.Search(ctx, collection, nil, expr, []string{b.config.Schema.IDField},
		[]entity.Vector{entity.FloatVector(query.Float32s())}, field, b.metric, k, sp)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, opSearch, err)
	}
	if len(results) == 0 {
		return []backend.Hit{}, nil
	}
	result := results[0]
	if result.Err != nil {
		return nil, errs.Wrap(errs.ErrIO, opSearch, result.Err)
	}
	ids, ok := result.IDs.(*entity.ColumnInt64)
	if result.ResultCount > 0 && !ok {
		return nil, errs.Schema(opSearch, "primary key column is %T, want int64", result.IDs)
	}
	hits := make([]backend.Hit, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		id, err := ids.ValueByIdx(i)
		if err != nil {
			return nil, errs.Wrap(errs.ErrIO, opSearch, err)
		}
		hits = append(hits, backend.Hit{ID: id, Distance: float64(result.Scores[i])})
	}
	return hits, nil
}

// expression validates filterExpr against the scalar fields and renders it
// canonically.
func (b *Backend) expression(filterExpr string) (string, error) {
	if filterExpr == "" {
		return "", nil
	}
	expr, err := filter.Parse(filterExpr, b.config.Schema.Scalars()...)
	if err != nil {
		return "", err
	}
	return expr.String(), nil
}

// Close closes the client.
func (b *Backend) Close() error { return b.client.Close() }

var _ backend.Backend = (*Backend)(nil)
