// Package policy holds the risk-seeking quantile computations and the
// policy-gradient baseline formulas.
package policy

import (
	"fmt"
	"math"
	"sort"
)

// RewardClip bounds rewards before baseline and mean computation so a rogue
// candidate cannot push non-finite values into the gradient step.
const RewardClip = 1e6

func Clip(r float64) float64 {
	if r > RewardClip {
		return RewardClip
	}
	if r < -RewardClip {
		return -RewardClip
	}
	return r
}

func ClipAll(rs []float64) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = Clip(r)
	}
	return out
}

// Quantile computes the empirical quantile at probability q with "round up"
// tie-breaking: the value at index ceil((n-1)*q) of the sorted sample.
func Quantile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("quantile of empty sample")
	}
	if q < 0 || q > 1 {
		return 0, fmt.Errorf("quantile probability must be in [0, 1], got %v", q)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(float64(len(sorted)-1) * q))
	return sorted[idx], nil
}

// WeightedQuantile computes the weighted order-statistic quantile: sort by
// value and return the smallest value whose cumulative weight reaches q.
func WeightedQuantile(values, weights []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("weighted quantile of empty sample")
	}
	if len(values) != len(weights) {
		return 0, fmt.Errorf("values/weights mismatch: %d != %d", len(values), len(weights))
	}
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })
	cum := 0.0
	for _, i := range idx {
		cum += weights[i]
		if cum >= q {
			return values[i], nil
		}
	}
	return values[idx[len(idx)-1]], nil
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func Max(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(-1)
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func ArgMax(values []float64) int {
	best := -1
	bestV := math.Inf(-1)
	for i, v := range values {
		if v > bestV {
			best = i
			bestV = v
		}
	}
	return best
}
