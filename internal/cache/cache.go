// Package cache deduplicates candidate construction and evaluation by
// canonical traversal key. A cache instance is owned by one training run and
// mutated only by the orchestrator goroutine; evaluation workers operate on
// snapshots and never touch it.
package cache

import (
	"sort"

	"exprsearch/internal/expr"
)

type Cache struct {
	lib     *expr.Library
	entries map[string]*entry
	order   []string
}

type entry struct {
	candidate *expr.Candidate
	count     int
}

func New(lib *expr.Library) *Cache {
	return &Cache{
		lib:     lib,
		entries: make(map[string]*entry),
	}
}

// Resolve returns the canonical candidate for a traversal. A repeated key
// returns the existing candidate with its reuse counter incremented and
// never re-triggers evaluation; created reports whether the candidate is
// new (and therefore still unevaluated).
func (c *Cache) Resolve(traversal []int, onPolicy bool) (*expr.Candidate, bool, error) {
	key := c.lib.Key(traversal)
	if e, ok := c.entries[key]; ok {
		e.count++
		return e.candidate, false, nil
	}
	cand, err := expr.NewCandidate(c.lib, traversal, onPolicy)
	if err != nil {
		return nil, false, err
	}
	c.entries[key] = &entry{candidate: cand, count: 1}
	c.order = append(c.order, key)
	return cand, true, nil
}

// Count returns how many times the key has been resolved.
func (c *Cache) Count(key string) int {
	if e, ok := c.entries[key]; ok {
		return e.count
	}
	return 0
}

func (c *Cache) Get(key string) (*expr.Candidate, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.candidate, true
}

// Len is the number of distinct keys ever seen.
func (c *Cache) Len() int { return len(c.entries) }

// Keys returns all distinct keys in first-seen order.
func (c *Cache) Keys() []string {
	return append([]string(nil), c.order...)
}

// Snapshot lists every cached candidate with reward at least rMin, best
// first, with its reuse count. Used for cache persistence at end of run.
type SnapshotEntry struct {
	Key     string
	Reward  float64
	Count   int
	Invalid bool
}

func (c *Cache) Snapshot(rMin float64) []SnapshotEntry {
	out := make([]SnapshotEntry, 0, len(c.entries))
	for _, key := range c.order {
		e := c.entries[key]
		if e.candidate.Reward < rMin {
			continue
		}
		out = append(out, SnapshotEntry{
			Key:     key,
			Reward:  e.candidate.Reward,
			Count:   e.count,
			Invalid: e.candidate.Invalid,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Reward > out[j].Reward })
	return out
}

// ErrorStats aggregates the failure taxonomy over all invalid candidates,
// weighted by how often each was re-sampled.
type ErrorStats struct {
	Invalid int
	ByKind  map[string]int
	ByNode  map[string]int
}

func (c *Cache) ErrorStats() ErrorStats {
	stats := ErrorStats{
		ByKind: make(map[string]int),
		ByNode: make(map[string]int),
	}
	for _, e := range c.entries {
		if !e.candidate.Invalid {
			continue
		}
		stats.Invalid += e.count
		stats.ByKind[e.candidate.ErrKind] += e.count
		if e.candidate.ErrNode != "" {
			stats.ByNode[e.candidate.ErrNode] += e.count
		}
	}
	return stats
}
