package bruteforce

import (
	"fmt"
	"math"
	"sort"

	"github.com/viant/multivec/index"
	"github.com/viant/multivec/vector"
)

// Index is a simple brute-force vector index.
type Index struct {
	metric vector.Metric
	ids    []int64
	vecs   []vector.Embedding
	dim    int
}

// New returns an empty index ranking by metric.
func New(metric vector.Metric) *Index { return &Index{metric: metric} }

// Metric returns the ranking metric.
func (i *Index) Metric() vector.Metric { return i.metric }

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

// Build loads ids and vectors after validating dimensions.
func (i *Index) Build(ids []int64, vectors []vector.Embedding) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("bruteforce: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.dim = nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("bruteforce: inconsistent vector dims %d vs %d", len(vectors[j]), dim)
		}
	}
	i.ids = append([]int64(nil), ids...)
	i.vecs = append([]vector.Embedding(nil), vectors...)
	i.dim = dim
	return nil
}

// Append adds one vector without rebuilding.
func (i *Index) Append(id int64, vec vector.Embedding) error {
	if len(i.ids) == 0 {
		i.dim = len(vec)
	} else if len(vec) != i.dim {
		return fmt.Errorf("bruteforce: vector dim %d != index dim %d", len(vec), i.dim)
	}
	i.ids = append(i.ids, id)
	i.vecs = append(i.vecs, vec)
	return nil
}

// Query returns the top-k accepted vectors by metric. k <= 0 returns every
// accepted vector.
func (i *Index) Query(query vector.Embedding, k int, accept func(pos int) bool) ([]int64, []float64, error) {
	if len(i.vecs) == 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("bruteforce: query dim %d != index dim %d", len(query), i.dim)
	}
	type scored struct {
		idx   int
		score float64
	}
	if k == 1 {
		best := scored{idx: -1}
		for j := range i.vecs {
			if accept != nil && !accept(j) {
				continue
			}
			s, ok := i.score(query, j)
			if !ok {
				continue
			}
			if best.idx < 0 || i.metric.Better(s, best.score) {
				best = scored{idx: j, score: s}
			}
		}
		if best.idx < 0 {
			return nil, nil, nil
		}
		return []int64{i.ids[best.idx]}, []float64{best.score}, nil
	}

	scoreds := make([]scored, 0, len(i.vecs))
	for j := range i.vecs {
		if accept != nil && !accept(j) {
			continue
		}
		s, ok := i.score(query, j)
		if !ok {
			continue
		}
		scoreds = append(scoreds, scored{idx: j, score: s})
	}
	sort.SliceStable(scoreds, func(a, b int) bool { return i.metric.Better(scoreds[a].score, scoreds[b].score) })
	if k <= 0 || k > len(scoreds) {
		k = len(scoreds)
	}
	outIDs := make([]int64, k)
	outScores := make([]float64, k)
	for n := 0; n < k; n++ {
		outIDs[n] = i.ids[scoreds[n].idx]
		outScores[n] = scoreds[n].score
	}
	return outIDs, outScores, nil
}

// score skips vectors the metric cannot evaluate, such as zero-magnitude
// vectors under cosine.
func (i *Index) score(query vector.Embedding, j int) (float64, bool) {
	s, err := i.metric.Distance(query, i.vecs[j])
	if err != nil || math.IsNaN(s) {
		return 0, false
	}
	return s, true
}

var _ index.Index = (*Index)(nil)
