package task

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"exprsearch/internal/expr"
)

type benchmarkSpec struct {
	fn        func(x float64) float64
	nPoints   int
	lo, hi    float64
	withConst bool
}

var benchmarks = map[string]benchmarkSpec{
	"nguyen1": {fn: func(x float64) float64 { return x*x*x + x*x + x }, nPoints: 20, lo: -1, hi: 1},
	"nguyen4": {
		fn:      func(x float64) float64 { return math.Pow(x, 6) + math.Pow(x, 5) + math.Pow(x, 4) + x*x*x + x*x + x },
		nPoints: 20, lo: -1, hi: 1,
	},
	"nguyen5": {fn: func(x float64) float64 { return math.Sin(x*x)*math.Cos(x) - 1 }, nPoints: 20, lo: -1, hi: 1},
	"nguyen7": {fn: func(x float64) float64 { return math.Log(x+1) + math.Log(x*x+1) }, nPoints: 20, lo: 0, hi: 2},
	"const1":  {fn: func(x float64) float64 { return 3.39*x*x*x + 2.12*x*x + 1.78*x }, nPoints: 20, lo: -1, hi: 1, withConst: true},
}

// BenchmarkNames lists the built-in regression benchmarks.
func BenchmarkNames() []string {
	names := make([]string, 0, len(benchmarks))
	for name := range benchmarks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Benchmark builds one of the named single-variable regression tasks with a
// freshly sampled dataset.
func Benchmark(name string, seed int64) (*Regression, error) {
	spec, ok := benchmarks[name]
	if !ok {
		return nil, fmt.Errorf("unknown benchmark: %s", name)
	}
	lib, err := expr.DefaultLibrary(1, spec.withConst)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	xs := make([][]float64, spec.nPoints)
	ys := make([]float64, spec.nPoints)
	for i := range xs {
		x := spec.lo + rng.Float64()*(spec.hi-spec.lo)
		xs[i] = []float64{x}
		ys[i] = spec.fn(x)
	}
	cfg := RegressionConfig{
		Name:    name,
		Library: lib,
		TrainX:  xs,
		TrainY:  ys,
	}
	if spec.withConst {
		cfg.ConstOpt = NewConstOptimizer()
	}
	return NewRegression(cfg)
}
