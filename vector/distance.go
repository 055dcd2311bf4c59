package vector

import (
	"fmt"
	"math"
	"strings"

	"github.com/viant/vec/search"
)

// Metric names a similarity or distance function understood by backends.
type Metric string

const (
	// MetricIP is the inner product; larger is more similar. MaxSim is
	// defined over this metric.
	MetricIP Metric = "IP"
	// MetricL2 is the Euclidean distance; smaller is more similar.
	MetricL2 Metric = "L2"
	// MetricCosine is the cosine similarity; larger is more similar.
	MetricCosine Metric = "COSINE"
)

// ParseMetric resolves a metric name case-insensitively. An empty name
// yields MetricIP.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "IP", "DOT", "INNER_PRODUCT":
		return MetricIP, nil
	case "L2", "EUCLIDEAN":
		return MetricL2, nil
	case "COSINE", "COS":
		return MetricCosine, nil
	}
	return "", fmt.Errorf("vector: unsupported metric %q", name)
}

// Ascending reports whether smaller values rank first.
func (m Metric) Ascending() bool { return m == MetricL2 }

// Better reports whether value a ranks strictly ahead of value b.
func (m Metric) Better(a, b float64) bool {
	if m.Ascending() {
		return a < b
	}
	return a > b
}

// Distance evaluates the metric between a and b.
func (m Metric) Distance(a, b Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: %s dimension mismatch: %d vs %d", m, len(a), len(b))
	}
	switch m {
	case MetricIP:
		return Dot(a, b), nil
	case MetricL2:
		return L2Distance(a, b)
	case MetricCosine:
		return CosineSimilarity(a, b)
	}
	return 0, fmt.Errorf("vector: unsupported metric %q", m)
}

// Dot computes the inner product of a and b in float64. Callers guarantee
// equal lengths.
func Dot(a, b Embedding) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// CosineSimilarity computes the cosine similarity between two vectors on
// their float32 projections. It returns an error if the vectors have
// different lengths or if either vector has zero magnitude.
func CosineSimilarity(a, b Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: cosine similarity dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vector: cosine similarity on empty vectors")
	}
	fa, fb := search.Float32s(a.Float32s()), b.Float32s()
	if fa.Magnitude() == 0 || search.Float32s(fb).Magnitude() == 0 {
		return 0, fmt.Errorf("vector: cosine similarity with zero-magnitude vector")
	}
	return 1 - float64(fa.CosineDistance(fb)), nil
}

// L2Distance computes the Euclidean (L2) distance between two vectors on
// their float32 projections. It returns an error if the vectors have
// different lengths.
func L2Distance(a, b Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: L2 distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	d := float64(search.Float32s(a.Float32s()).EuclideanDistance(b.Float32s()))
	if math.IsNaN(d) {
		return 0, fmt.Errorf("vector: L2 distance is NaN")
	}
	return d, nil
}
