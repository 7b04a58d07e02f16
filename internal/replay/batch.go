// Package replay holds the rectangular training batch and the two bounded
// containers backing quantile smoothing and priority-queue training.
package replay

import (
	"fmt"

	"exprsearch/internal/expr"
)

// Obs is the fixed triple of observation matrices a sampler conditions on:
// previous action, parent, sibling. All share the action matrix shape.
type Obs struct {
	Prev    [][]int32
	Parent  [][]int32
	Sibling [][]int32
}

// Batch is one rectangular collection of encoded candidates. All per-row
// slices share the same row count; Lengths[i] is the index just past row
// i's first structurally complete prefix.
type Batch struct {
	Actions  [][]int32
	Obs      Obs
	Priors   [][][]float32
	Lengths  []int32
	Rewards  []float64
	OnPolicy []bool
}

func (b Batch) Len() int { return len(b.Actions) }

func (b Batch) Validate() error {
	n := len(b.Actions)
	if len(b.Obs.Prev) != n || len(b.Obs.Parent) != n || len(b.Obs.Sibling) != n {
		return fmt.Errorf("observation row count mismatch: actions=%d obs=(%d,%d,%d)",
			n, len(b.Obs.Prev), len(b.Obs.Parent), len(b.Obs.Sibling))
	}
	if len(b.Priors) != n || len(b.Lengths) != n || len(b.Rewards) != n || len(b.OnPolicy) != n {
		return fmt.Errorf("row count mismatch: actions=%d priors=%d lengths=%d rewards=%d on_policy=%d",
			n, len(b.Priors), len(b.Lengths), len(b.Rewards), len(b.OnPolicy))
	}
	for i, row := range b.Actions {
		if int(b.Lengths[i]) > len(row) {
			return fmt.Errorf("row %d length %d exceeds max length %d", i, b.Lengths[i], len(row))
		}
	}
	return nil
}

// Filter retains the rows where keep is true. The same mask is applied to
// every per-row array so positional correspondence survives.
func (b Batch) Filter(keep []bool) Batch {
	out := Batch{}
	for i := range b.Actions {
		if i < len(keep) && keep[i] {
			out.Actions = append(out.Actions, b.Actions[i])
			out.Obs.Prev = append(out.Obs.Prev, b.Obs.Prev[i])
			out.Obs.Parent = append(out.Obs.Parent, b.Obs.Parent[i])
			out.Obs.Sibling = append(out.Obs.Sibling, b.Obs.Sibling[i])
			out.Priors = append(out.Priors, b.Priors[i])
			out.Lengths = append(out.Lengths, b.Lengths[i])
			out.Rewards = append(out.Rewards, b.Rewards[i])
			out.OnPolicy = append(out.OnPolicy, b.OnPolicy[i])
		}
	}
	return out
}

// Append concatenates other's rows after b's along the batch axis.
func (b Batch) Append(other Batch) Batch {
	return Batch{
		Actions: append(b.Actions, other.Actions...),
		Obs: Obs{
			Prev:    append(b.Obs.Prev, other.Obs.Prev...),
			Parent:  append(b.Obs.Parent, other.Obs.Parent...),
			Sibling: append(b.Obs.Sibling, other.Obs.Sibling...),
		},
		Priors:   append(b.Priors, other.Priors...),
		Lengths:  append(b.Lengths, other.Lengths...),
		Rewards:  append(b.Rewards, other.Rewards...),
		OnPolicy: append(b.OnPolicy, other.OnPolicy...),
	}
}

// Row extracts one encoded row for container storage.
func (b Batch) Row(i int) expr.Row {
	return expr.Row{
		Actions: b.Actions[i],
		Prev:    b.Obs.Prev[i],
		Parent:  b.Obs.Parent[i],
		Sibling: b.Obs.Sibling[i],
		Priors:  b.Priors[i],
		Length:  b.Lengths[i],
	}
}

// FromRows assembles a batch out of stored rows, encoding identically to a
// live batch over the same traversals.
func FromRows(rows []expr.Row, rewards []float64, onPolicy []bool) Batch {
	b := Batch{}
	for i, row := range rows {
		b.Actions = append(b.Actions, row.Actions)
		b.Obs.Prev = append(b.Obs.Prev, row.Prev)
		b.Obs.Parent = append(b.Obs.Parent, row.Parent)
		b.Obs.Sibling = append(b.Obs.Sibling, row.Sibling)
		b.Priors = append(b.Priors, row.Priors)
		b.Lengths = append(b.Lengths, row.Length)
		b.Rewards = append(b.Rewards, rewards[i])
		b.OnPolicy = append(b.OnPolicy, onPolicy[i])
	}
	return b
}
