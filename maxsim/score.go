package maxsim

import (
	"math"

	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/vector"
)

const opScore = "maxsim: score"

// Best returns the largest inner product between q and any vector of doc,
// and the index of the first vector reaching it. An empty doc yields -Inf
// and index -1.
func Best(q vector.Embedding, doc vector.Document) (float64, int) {
	best, at := math.Inf(-1), -1
	for j, d := range doc {
		if s := vector.Dot(q, d); at < 0 || s > best {
			best, at = s, j
		}
	}
	return best, at
}

// Score is the MaxSim score of doc for query: the sum over query vectors of
// their best inner product against doc. Every vector must share one
// dimension. An empty doc scores -Inf; an empty query scores 0.
func Score(query, doc vector.Document) (float64, error) {
	if err := checkDims(query, doc); err != nil {
		return 0, err
	}
	return score(query, doc), nil
}

func score(query, doc vector.Document) float64 {
	if len(doc) == 0 {
		return math.Inf(-1)
	}
	var total float64
	for _, q := range query {
		best, _ := Best(q, doc)
		total += best
	}
	return total
}

func checkDims(query, doc vector.Document) error {
	if len(query) == 0 {
		return nil
	}
	dim := len(query[0])
	for i, q := range query {
		if len(q) != dim {
			return &errs.Error{Kind: errs.ErrSchema, Op: opScore, Record: int64(i),
				Msg: "query vectors disagree on dimension"}
		}
	}
	for j, d := range doc {
		if len(d) != dim {
			return &errs.Error{Kind: errs.ErrSchema, Op: opScore, Record: int64(j),
				Msg: "document vector dimension does not match query dimension"}
		}
	}
	return nil
}
