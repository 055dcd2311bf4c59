package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/multivec/internal/logging"
	"github.com/viant/multivec/maxsim"
	"github.com/viant/multivec/vector"
)

// Result is one ranked query.
type Result struct {
	Query   int
	IDs     []int64
	Latency time.Duration
}

// Run ranks queries one at a time, in order. On the first failure it stops
// and returns the results gathered so far together with an error naming
// the failing query.
func Run(ctx context.Context, ranker maxsim.Ranker, queries []vector.Document, topK int, logger *logging.Logger) ([]Result, error) {
	logger = logging.OrNoop(logger)
	results := make([]Result, 0, len(queries))
	for i, query := range queries {
		started := time.Now()
		ids, err := ranker.Rank(ctx, query, topK)
		latency := time.Since(started)
		logger.LogQuery(ctx, i, topK, len(ids), latency, err)
		if err != nil {
			return results, fmt.Errorf("bench: query %d: %w", i, err)
		}
		results = append(results, Result{Query: i, IDs: ids, Latency: latency})
	}
	return results, nil
}

// IDs returns the ranked ids of every result.
func IDs(results []Result) [][]int64 {
	out := make([][]int64, len(results))
	for i, r := range results {
		out[i] = r.IDs
	}
	return out
}
