// Package evolve is a reference evolutionary integration: it breeds extra
// candidate rows by point-mutating the epoch's on-policy traversals. Rows
// come back in the standard row-major encoding, appended by the orchestrator
// after the on-policy rows.
package evolve

import (
	"context"
	"fmt"
	"math/rand"

	"exprsearch/internal/expr"
	"exprsearch/internal/train"
)

type Config struct {
	Library   *expr.Library
	MaxLength int
	Rows      int
	Seed      int64
	// FeedBack lets mutated rows enter the sampler's training step. When
	// false they only compete for best-candidate and the buffers.
	FeedBack bool
}

type Mutator struct {
	cfg Config
	rng *rand.Rand
}

func NewMutator(cfg Config) (*Mutator, error) {
	if cfg.Library == nil {
		return nil, fmt.Errorf("library is required")
	}
	if cfg.MaxLength <= 0 {
		return nil, fmt.Errorf("max length must be > 0")
	}
	if cfg.Rows <= 0 {
		return nil, fmt.Errorf("rows must be > 0")
	}
	return &Mutator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

func (m *Mutator) FeedsBackToSampler() bool { return m.cfg.FeedBack }

func (m *Mutator) Augment(ctx context.Context, actions [][]int32) (train.AugmentedRows, error) {
	if err := ctx.Err(); err != nil {
		return train.AugmentedRows{}, err
	}
	if len(actions) == 0 {
		return train.AugmentedRows{}, fmt.Errorf("empty seed batch")
	}
	out := train.AugmentedRows{}
	attempts := 0
	for len(out.Actions) < m.cfg.Rows && attempts < m.cfg.Rows*4 {
		attempts++
		parent := actions[m.rng.Intn(len(actions))]
		traversal := expr.Traversal(parent, m.cfg.Library, m.cfg.MaxLength)
		if traversal == nil {
			continue
		}
		child := m.pointMutate(traversal)
		row := m.cfg.Library.EncodeTraversal(child, m.cfg.MaxLength)
		out.Actions = append(out.Actions, row.Actions)
		out.Obs.Prev = append(out.Obs.Prev, row.Prev)
		out.Obs.Parent = append(out.Obs.Parent, row.Parent)
		out.Obs.Sibling = append(out.Obs.Sibling, row.Sibling)
		out.Priors = append(out.Priors, row.Priors)
	}
	out.NEvals = len(out.Actions)
	return out, nil
}

// pointMutate swaps one token for another of the same arity, preserving
// structural completeness.
func (m *Mutator) pointMutate(traversal []int) []int {
	lib := m.cfg.Library
	child := append([]int(nil), traversal...)
	pos := m.rng.Intn(len(child))
	arity := lib.Arity(child[pos])
	options := make([]int, 0, lib.Len())
	for id := 0; id < lib.Len(); id++ {
		if lib.Arity(id) == arity && id != child[pos] {
			options = append(options, id)
		}
	}
	if len(options) > 0 {
		child[pos] = options[m.rng.Intn(len(options))]
	}
	return child
}

var _ train.EvolutionarySearch = (*Mutator)(nil)
