package bench

import (
	"math"
	"slices"
	"time"

	"github.com/viant/multivec/errs"
)

// Recall is |truth ∩ got| / |truth| over distinct ids. It is 0 for an empty
// truth.
func Recall(truth, got []int64) float64 {
	want := make(map[int64]struct{}, len(truth))
	for _, id := range truth {
		want[id] = struct{}{}
	}
	n := len(want)
	if n == 0 {
		return 0
	}
	hit := 0
	for _, id := range got {
		if _, ok := want[id]; ok {
			hit++
			delete(want, id)
		}
	}
	return float64(hit) / float64(n)
}

// MeanRecall averages Recall over paired result lists. Both sides must
// cover the same number of queries.
func MeanRecall(truth, got [][]int64) (float64, error) {
	if len(truth) != len(got) {
		return 0, errs.InvalidArgument("bench: recall", "ground truth has %d queries, results have %d", len(truth), len(got))
	}
	if len(truth) == 0 {
		return 0, nil
	}
	var sum float64
	for i := range truth {
		sum += Recall(truth[i], got[i])
	}
	return sum / float64(len(truth)), nil
}

// Summary aggregates a run.
type Summary struct {
	Mode          string   `yaml:"mode,omitempty"`
	Backend       string   `yaml:"backend,omitempty"`
	Queries       int      `yaml:"queries"`
	TopK          int      `yaml:"top_k"`
	TotalMs       float64  `yaml:"total_ms"`
	MeanLatencyMs float64  `yaml:"mean_latency_ms"`
	P50LatencyMs  float64  `yaml:"p50_latency_ms"`
	P99LatencyMs  float64  `yaml:"p99_latency_ms"`
	QPS           float64  `yaml:"qps"`
	MeanRecall    *float64 `yaml:"mean_recall,omitempty"`
}

// Summarize computes latency statistics over results and, when truth is
// non-nil, the mean recall of each result against the truth line of the
// same query.
func Summarize(results []Result, topK int, truth [][]int64) Summary {
	s := Summary{Queries: len(results), TopK: topK}
	if len(results) == 0 {
		return s
	}
	latencies := make([]time.Duration, len(results))
	var total time.Duration
	for i, r := range results {
		latencies[i] = r.Latency
		total += r.Latency
	}
	slices.Sort(latencies)
	s.TotalMs = ms(total)
	s.MeanLatencyMs = s.TotalMs / float64(len(results))
	s.P50LatencyMs = ms(percentile(latencies, 0.50))
	s.P99LatencyMs = ms(percentile(latencies, 0.99))
	if total > 0 {
		s.QPS = float64(len(results)) / total.Seconds()
	}
	if truth != nil {
		var sum float64
		for _, r := range results {
			if r.Query < len(truth) {
				sum += Recall(truth[r.Query], r.IDs)
			}
		}
		mean := sum / float64(len(results))
		s.MeanRecall = &mean
	}
	return s
}

// percentile uses the nearest-rank method over sorted values.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	return sorted[max(rank, 0)]
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
