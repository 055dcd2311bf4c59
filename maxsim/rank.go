package maxsim

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/vector"
)

const opRank = "maxsim: rank"

// Options tune Rank.
type Options struct {
	// BestEffort returns fewer than topK ids, possibly none, when there are
	// not enough candidates instead of failing.
	BestEffort bool
}

// Scored is a document id with its MaxSim score.
type Scored struct {
	DocID int64
	Score float64
}

// Rank scores every candidate against query and returns the topK doc ids by
// descending score, ties broken by ascending doc id.
//
// Rank fails with errs.ErrInvalidArgument when topK <= 0, the query is
// empty, or there are fewer candidates than topK (including none) unless
// opts.BestEffort is set. Dimension mismatches fail with errs.ErrSchema.
func Rank(query vector.Document, candidates map[int64]vector.Document, topK int, opts Options) ([]int64, error) {
	if err := validate(query, len(candidates), topK, opts); err != nil {
		return nil, err
	}
	scored := make([]Scored, 0, len(candidates))
	for id, doc := range candidates {
		if err := checkDims(query, doc); err != nil {
			return nil, fmt.Errorf("doc %d: %w", id, err)
		}
		scored = append(scored, Scored{DocID: id, Score: score(query, doc)})
	}
	return Top(scored, topK), nil
}

// Top orders scored by descending score then ascending doc id and returns
// the first k ids. scored is sorted in place.
func Top(scored []Scored, k int) []int64 {
	slices.SortFunc(scored, compareScored)
	k = min(k, len(scored))
	out := make([]int64, k)
	for i := range out {
		out[i] = scored[i].DocID
	}
	return out
}

func compareScored(a, b Scored) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.DocID, b.DocID)
}

func validate(query vector.Document, candidates, topK int, opts Options) error {
	if topK <= 0 {
		return errs.InvalidArgument(opRank, "top_k must be positive, got %d", topK)
	}
	if len(query) == 0 {
		return errs.InvalidArgument(opRank, "query has no vectors")
	}
	if candidates < topK && !opts.BestEffort {
		if candidates == 0 {
			return errs.InvalidArgument(opRank, "no candidate documents")
		}
		return errs.InvalidArgument(opRank, "top_k %d exceeds %d candidate documents", topK, candidates)
	}
	return nil
}
