// Package evalpool spreads candidate evaluation (constant fitting plus
// reward computation) over a fixed set of workers. Workers receive
// independent candidate snapshots and return plain results; the canonical
// candidates and the cache stay untouched until the pool joins and results
// are applied back in submission order.
package evalpool

import (
	"context"
	"fmt"
	"sync"

	"exprsearch/internal/expr"
	"exprsearch/internal/task"
)

type Pool struct {
	task    task.Task
	workers int
}

func New(t task.Task, workers int) (*Pool, error) {
	if t == nil {
		return nil, fmt.Errorf("task is required")
	}
	if workers <= 0 {
		workers = 1
	}
	return &Pool{task: t, workers: workers}, nil
}

func (p *Pool) Workers() int { return p.workers }

// EvaluateAll resolves rewards for every candidate in cands. Only the
// distinct unevaluated subset is dispatched; already-cached candidates are
// skipped entirely. A failing worker marks its one candidate invalid and
// never aborts the rest.
func (p *Pool) EvaluateAll(ctx context.Context, cands []*expr.Candidate) error {
	pending := make([]*expr.Candidate, 0, len(cands))
	seen := make(map[string]struct{}, len(cands))
	for _, c := range cands {
		if c.Evaluated {
			continue
		}
		if _, dup := seen[c.Key]; dup {
			continue
		}
		seen[c.Key] = struct{}{}
		pending = append(pending, c)
	}
	if len(pending) == 0 {
		return nil
	}

	results := make([]task.Result, len(pending))
	if p.workers == 1 {
		for i, c := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = p.evaluateOne(c.Snapshot())
		}
	} else {
		if err := p.runWorkers(ctx, pending, results); err != nil {
			return err
		}
	}

	// Apply in submission order onto the canonical candidates.
	for i, c := range pending {
		res := results[i]
		c.Finalize(res.Constants, res.BaseReward, res.Reward, res.ErrKind, res.ErrNode)
	}
	return nil
}

func (p *Pool) runWorkers(ctx context.Context, pending []*expr.Candidate, results []task.Result) error {
	type job struct {
		idx  int
		snap *expr.Candidate
	}
	jobs := make(chan job)

	workerCount := p.workers
	if workerCount > len(pending) {
		workerCount = len(pending)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = p.evaluateOne(j.snap)
			}
		}()
	}

	var dispatchErr error
dispatch:
	for i, c := range pending {
		select {
		case <-ctx.Done():
			dispatchErr = ctx.Err()
			break dispatch
		case jobs <- job{idx: i, snap: c.Snapshot()}:
		}
	}
	close(jobs)
	wg.Wait()
	return dispatchErr
}

// evaluateOne runs the task against a snapshot; a panic inside the task is
// converted into an invalid-candidate record.
func (p *Pool) evaluateOne(snap *expr.Candidate) (res task.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = task.Result{ErrKind: expr.ErrKindWorker, ErrNode: fmt.Sprint(r)}
		}
	}()
	return p.task.Evaluate(snap)
}
