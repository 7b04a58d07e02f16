package task

import (
	"hash/fnv"
	"math/rand"
)

// ConstOptimizer fits constant placeholders by random-perturbation hill
// climbing with per-round annealing. Each Fit call seeds its own generator
// from the candidate key, so results are deterministic and safe to run on
// concurrent workers.
type ConstOptimizer struct {
	Rounds    int
	StepSize  float64
	Annealing float64
}

func NewConstOptimizer() *ConstOptimizer {
	return &ConstOptimizer{Rounds: 24, StepSize: 0.5, Annealing: 0.9}
}

// Fit maximizes objective over the constant vector starting from initial.
// objective returns ok=false when the candidate is not evaluable at the
// given constants; such moves are rejected.
func (o *ConstOptimizer) Fit(key string, initial []float64, objective func([]float64) (float64, bool)) []float64 {
	if len(initial) == 0 {
		return initial
	}
	rounds := o.Rounds
	if rounds <= 0 {
		rounds = 24
	}
	step := o.StepSize
	if step <= 0 {
		step = 0.5
	}
	annealing := o.Annealing
	if annealing <= 0 || annealing > 1 {
		annealing = 0.9
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	best := append([]float64(nil), initial...)
	bestScore, ok := objective(best)
	if !ok {
		return best
	}
	scale := step
	for round := 0; round < rounds; round++ {
		candidate := append([]float64(nil), best...)
		for i := range candidate {
			candidate[i] += rng.NormFloat64() * scale
		}
		score, ok := objective(candidate)
		if ok && score > bestScore {
			best = candidate
			bestScore = score
		}
		scale *= annealing
	}
	return best
}
