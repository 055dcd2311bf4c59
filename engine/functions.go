package engine

import (
	"database/sql/driver"
	"fmt"
	"math"
	"sync"

	"github.com/viant/multivec/vector"
	sqlite "modernc.org/sqlite"
)

// FunctionName returns the SQL scalar function evaluating metric.
func FunctionName(metric vector.Metric) (string, error) {
	switch metric {
	case vector.MetricIP:
		return "vec_ip", nil
	case vector.MetricL2:
		return "vec_l2", nil
	case vector.MetricCosine:
		return "vec_cosine", nil
	}
	return "", fmt.Errorf("engine: unsupported metric %q", metric)
}

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterVectorFunctions registers vec_ip, vec_l2 and vec_cosine with the
// driver. Functions are visible to connections opened after the first call;
// later calls are no-ops.
func RegisterVectorFunctions() error {
	registerOnce.Do(func() {
		for _, metric := range []vector.Metric{vector.MetricIP, vector.MetricL2, vector.MetricCosine} {
			name, _ := FunctionName(metric)
			if err := sqlite.RegisterDeterministicScalarFunction(name, 2, metricImpl(name, metric)); err != nil {
				registerErr = fmt.Errorf("engine: register %s: %w", name, err)
				return
			}
		}
	})
	return registerErr
}

func asEmbedding(arg driver.Value) (vector.Embedding, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(v) == 0 {
			return nil, nil
		}
		return vector.DecodeEmbedding(v)
	default:
		return nil, fmt.Errorf("vec: unsupported argument type %T for embedding; want BLOB", arg)
	}
}

// metricImpl returns NULL when either argument is NULL or when the metric
// cannot score the pair, such as a zero-magnitude vector under cosine.
func metricImpl(name string, metric vector.Metric) func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error) {
	return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
		}
		a, err := asEmbedding(args[0])
		if err != nil {
			return nil, err
		}
		b, err := asEmbedding(args[1])
		if err != nil {
			return nil, err
		}
		if a == nil || b == nil {
			return nil, nil
		}
		if len(a) != len(b) {
			return nil, fmt.Errorf("%s: dimension mismatch: %d vs %d", name, len(a), len(b))
		}
		v, err := metric.Distance(a, b)
		if err != nil || math.IsNaN(v) {
			return nil, nil
		}
		return v, nil
	}
}
