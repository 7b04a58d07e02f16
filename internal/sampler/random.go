// Package sampler provides a seeded arity-respecting random sampler. It
// stands in for the neural controller in demos, warm starts and tests: its
// TrainStep validates shapes and reports summaries but learns nothing.
package sampler

import (
	"fmt"
	"math/rand"

	"exprsearch/internal/expr"
	"exprsearch/internal/replay"
	"exprsearch/internal/train"
)

type Config struct {
	Library   *expr.Library
	MaxLength int
	Seed      int64

	// Priority-queue training knobs, surfaced through the Sampler contract.
	PriorityBuffer bool
	PriorityK      int
	AuxBatchSize   int
}

type Random struct {
	cfg Config
	rng *rand.Rand

	trainSteps int
}

func NewRandom(cfg Config) (*Random, error) {
	if cfg.Library == nil {
		return nil, fmt.Errorf("library is required")
	}
	if cfg.MaxLength <= 0 {
		return nil, fmt.Errorf("max length must be > 0")
	}
	if len(cfg.Library.Terminals()) == 0 {
		return nil, fmt.Errorf("library has no terminal tokens")
	}
	if cfg.PriorityBuffer {
		if cfg.PriorityK <= 0 {
			cfg.PriorityK = 10
		}
		if cfg.AuxBatchSize <= 0 {
			cfg.AuxBatchSize = 1
		}
	}
	return &Random{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

func (s *Random) MaxLength() int              { return s.cfg.MaxLength }
func (s *Random) UsesPriorityBuffer() bool    { return s.cfg.PriorityBuffer }
func (s *Random) PriorityBufferCapacity() int { return s.cfg.PriorityK }
func (s *Random) AuxBatchSize() int           { return s.cfg.AuxBatchSize }
func (s *Random) TrainSteps() int             { return s.trainSteps }

func (s *Random) Sample(n int) ([][]int32, replay.Obs, [][][]float32, error) {
	if n <= 0 {
		return nil, replay.Obs{}, nil, fmt.Errorf("sample size must be > 0")
	}
	actions := make([][]int32, n)
	obs := replay.Obs{
		Prev:    make([][]int32, n),
		Parent:  make([][]int32, n),
		Sibling: make([][]int32, n),
	}
	priors := make([][][]float32, n)
	for i := 0; i < n; i++ {
		traversal := s.sampleTraversal()
		row := s.cfg.Library.EncodeTraversal(traversal, s.cfg.MaxLength)
		actions[i] = row.Actions
		obs.Prev[i] = row.Prev
		obs.Parent[i] = row.Parent
		obs.Sibling[i] = row.Sibling
		priors[i] = row.Priors
	}
	return actions, obs, priors, nil
}

// sampleTraversal draws tokens uniformly among those whose arity still
// allows structural completion within the length budget.
func (s *Random) sampleTraversal() []int {
	lib := s.cfg.Library
	traversal := make([]int, 0, s.cfg.MaxLength)
	dangling := 1
	for dangling > 0 && len(traversal) < s.cfg.MaxLength {
		budget := s.cfg.MaxLength - len(traversal) - dangling
		allowed := make([]int, 0, lib.Len())
		for id := 0; id < lib.Len(); id++ {
			if lib.Arity(id) <= budget {
				allowed = append(allowed, id)
			}
		}
		pick := allowed[s.rng.Intn(len(allowed))]
		traversal = append(traversal, pick)
		dangling += lib.Arity(pick) - 1
	}
	return traversal
}

func (s *Random) TrainStep(baseline float64, batch replay.Batch, aux *replay.Batch) (train.Summary, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	if aux != nil {
		if err := aux.Validate(); err != nil {
			return nil, err
		}
	}
	s.trainSteps++
	summary := train.Summary{
		"baseline":   baseline,
		"batch_size": float64(batch.Len()),
	}
	if aux != nil {
		summary["aux_batch_size"] = float64(aux.Len())
	}
	return summary, nil
}
