package bench

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/viant/multivec/container"
	"github.com/viant/multivec/vector"
)

// Workload is a decoded corpus and query set.
type Workload struct {
	Corpus  *container.Groups
	Queries []vector.Document
}

// LoadQueries decodes a query container, one query per document run.
func LoadQueries(path string, chunkSize int) ([]vector.Document, error) {
	groups, err := container.ReadGroupedFile(path, chunkSize)
	if err != nil {
		return nil, err
	}
	return groups.Documents(), nil
}

// LoadInMemory decodes the corpus and query containers concurrently. An
// empty corpusPath loads only the queries.
func LoadInMemory(ctx context.Context, corpusPath, queryPath string, chunkSize int) (*Workload, error) {
	w := &Workload{}
	g, ctx := errgroup.WithContext(ctx)
	if corpusPath != "" {
		g.Go(func() error {
			groups, err := container.ReadGroupedFile(corpusPath, chunkSize)
			if err != nil {
				return err
			}
			w.Corpus = groups
			return ctx.Err()
		})
	}
	g.Go(func() error {
		queries, err := LoadQueries(queryPath, chunkSize)
		if err != nil {
			return err
		}
		w.Queries = queries
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return w, nil
}
