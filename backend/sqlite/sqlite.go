// Package sqlite implements the backend on a SQLite database. Each
// collection is a table (id INTEGER PRIMARY KEY, vector BLOB, doc INTEGER);
// kNN search orders rows by the registered vec_ip, vec_l2 or vec_cosine
// scalar function, so every search is exact.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/viant/multivec/backend"
	"github.com/viant/multivec/engine"
	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/filter"
	"github.com/viant/multivec/vector"
)

const (
	opCreate = "sqlite: create"
	opInsert = "sqlite: insert"
	opBuild  = "sqlite: build index"
	opList   = "sqlite: list"
	opSearch = "sqlite: search"
)

// Config holds configuration for the SQLite backend.
type Config struct {
	// Metric ranks search results (default: IP).
	Metric vector.Metric

	// Schema names the id, vector and doc columns.
	Schema backend.Schema
}

func (c Config) withDefaults() Config {
	if c.Metric == "" {
		c.Metric = vector.MetricIP
	}
	c.Schema = c.Schema.WithDefaults()
	return c
}

// Backend stores collections in SQLite tables.
type Backend struct {
	db       *sqlx.DB
	config   Config
	function string
}

// New creates a backend on db and ensures the collection catalog exists.
// db must be opened through engine so the vector functions are registered.
func New(ctx context.Context, db *sqlx.DB, config Config) (*Backend, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite: db is nil")
	}
	config = config.withDefaults()
	function, err := engine.FunctionName(config.Metric)
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidArgument, "sqlite: new", err)
	}
	s := config.Schema
	for _, name := range []string{s.IDField, s.VectorField, s.DocField} {
		if err := checkIdentifier("sqlite: new", "column", name); err != nil {
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, catalogSchema); err != nil {
		return nil, errs.Wrap(errs.ErrIO, "sqlite: new", err)
	}
	return &Backend{db: db, config: config, function: function}, nil
}

// Open opens dsn with engine.OpenX and returns a backend owning the
// connection. SQLite in-memory databases are per connection, so the pool is
// limited to one connection.
func Open(ctx context.Context, dsn string, config Config) (*Backend, error) {
	db, err := engine.OpenX(dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "sqlite: open", err)
	}
	db.SetMaxOpenConns(1)
	b, err := New(ctx, db, config)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// DB returns the underlying connection.
func (b *Backend) DB() *sqlx.DB { return b.db }

// Create drops and recreates the collection table.
func (b *Backend) Create(ctx context.Context, collection string, dim int) error {
	if err := checkIdentifier(opCreate, "collection", collection); err != nil {
		return err
	}
	if dim < 0 {
		return errs.InvalidArgument(opCreate, "negative dimension %d", dim)
	}
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.ErrIO, opCreate, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []struct {
		query string
		args  []any
	}{
		{query: fmt.Sprintf(`DROP TABLE IF EXISTS %q`, collection)},
		{query: b.createTableSQL(collection)},
		{query: `INSERT OR REPLACE INTO multivec_collections(name, dim) VALUES (?, ?)`, args: []any{collection, dim}},
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return errs.Wrap(errs.ErrIO, opCreate, err)
		}
	}
	return errs.Wrap(errs.ErrIO, opCreate, tx.Commit())
}

// Insert writes records in one transaction.
func (b *Backend) Insert(ctx context.Context, collection string, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}
	dim, err := b.dimension(ctx, opInsert, collection)
	if err != nil {
		return err
	}
	s := b.config.Schema
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.ErrIO, opInsert, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(`INSERT INTO %q(%q, %q, %q) VALUES(?, ?, ?)`,
		collection, s.IDField, s.VectorField, s.DocField))
	if err != nil {
		return errs.Wrap(errs.ErrIO, opInsert, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if len(rec.Embedding) != dim {
			return &errs.Error{Kind: errs.ErrSchema, Op: opInsert, Record: rec.VectorID,
				Msg: fmt.Sprintf("embedding dimension %d does not match collection dimension %d", len(rec.Embedding), dim)}
		}
		blob, err := vector.EncodeEmbedding(rec.Embedding)
		if err != nil {
			return errs.Wrap(errs.ErrSchema, opInsert, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.VectorID, blob, rec.DocID); err != nil {
			return errs.Wrap(errs.ErrIO, opInsert, err)
		}
	}
	return errs.Wrap(errs.ErrIO, opInsert, tx.Commit())
}

// BuildIndex indexes the doc column so per-document filters avoid a full
// scan.
func (b *Backend) BuildIndex(ctx context.Context, collection string) error {
	if _, err := b.dimension(ctx, opBuild, collection); err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, b.docIndexSQL(collection)); err != nil {
		return errs.Wrap(errs.ErrIO, opBuild, err)
	}
	return nil
}

// ListDistinctValues returns the distinct values of an int64 column in
// ascending order.
func (b *Backend) ListDistinctValues(ctx context.Context, collection, field string) ([]int64, error) {
	if !b.scalar(field) {
		return nil, errs.InvalidArgument(opList, "field %q is not a scalar field of %q", field, collection)
	}
	if _, err := b.dimension(ctx, opList, collection); err != nil {
		return nil, err
	}
	out := []int64{}
	query := fmt.Sprintf(`SELECT DISTINCT %q FROM %q ORDER BY 1`, field, collection)
	if err := b.db.SelectContext(ctx, &out, query); err != nil {
		return nil, errs.Wrap(errs.ErrIO, opList, err)
	}
	return out, nil
}

// FilteredKNN scans the rows matching filterExpr and returns the k best by
// the configured metric, ties broken by ascending id. Rows the metric cannot
// score are skipped.
func (b *Backend) FilteredKNN(ctx context.Context, collection, field string, query vector.Embedding, filterExpr string, k int) ([]backend.Hit, error) {
	if err := backend.ValidateK(opSearch, k); err != nil {
		return nil, err
	}
	s := b.config.Schema
	if field != s.VectorField {
		return nil, errs.InvalidArgument(opSearch, "field %q is not the vector field of %q", field, collection)
	}
	dim, err := b.dimension(ctx, opSearch, collection)
	if err != nil {
		return nil, err
	}
	if len(query) != dim {
		return nil, errs.Schema(opSearch, "query dimension %d does not match collection dimension %d", len(query), dim)
	}
	blob, err := vector.EncodeEmbedding(query)
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidArgument, opSearch, err)
	}

	where, filterArgs, err := b.where(filterExpr)
	if err != nil {
		return nil, err
	}
	order := "DESC"
	if b.config.Metric.Ascending() {
		order = "ASC"
	}
	// Rows the metric cannot score evaluate to NULL and are skipped.
	stmt := fmt.Sprintf(`SELECT id, distance FROM (SELECT %q AS id, %s(%q, ?) AS distance FROM %q%s) WHERE distance IS NOT NULL ORDER BY distance %s, id ASC LIMIT ?`,
		s.IDField, b.function, s.VectorField, collection, where, order)
	args := make([]any, 0, len(filterArgs)+2)
	args = append(args, blob)
	args = append(args, filterArgs...)
	args = append(args, k)

	hits := []backend.Hit{}
	if err := b.db.SelectContext(ctx, &hits, stmt, args...); err != nil {
		return nil, errs.Wrap(errs.ErrIO, opSearch, err)
	}
	return hits, nil
}

func (b *Backend) where(filterExpr string) (string, []any, error) {
	if filterExpr == "" {
		return "", nil, nil
	}
	s := b.config.Schema
	expr, err := filter.Parse(filterExpr, s.Scalars()...)
	if err != nil {
		return "", nil, err
	}
	predicate, args, err := filter.SQL(expr, map[string]string{
		s.IDField:  fmt.Sprintf("%q", s.IDField),
		s.DocField: fmt.Sprintf("%q", s.DocField),
	})
	if err != nil {
		return "", nil, err
	}
	return " WHERE " + predicate, args, nil
}

func (b *Backend) scalar(field string) bool {
	return field == b.config.Schema.IDField || field == b.config.Schema.DocField
}

// dimension looks up a collection in the catalog.
func (b *Backend) dimension(ctx context.Context, op, collection string) (int, error) {
	if err := checkIdentifier(op, "collection", collection); err != nil {
		return 0, err
	}
	var dim int
	err := b.db.GetContext(ctx, &dim, `SELECT dim FROM multivec_collections WHERE name = ?`, collection)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errs.InvalidArgument(op, "collection %q does not exist", collection)
	}
	if err != nil {
		return 0, errs.Wrap(errs.ErrIO, op, err)
	}
	return dim, nil
}

// Close closes the database.
func (b *Backend) Close() error { return b.db.Close() }

var _ backend.Backend = (*Backend)(nil)
