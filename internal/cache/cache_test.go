package cache

import (
	"testing"

	"exprsearch/internal/expr"
)

func newTestCache(t *testing.T) (*Cache, *expr.Library) {
	t.Helper()
	lib, err := expr.DefaultLibrary(1, false)
	if err != nil {
		t.Fatalf("default library: %v", err)
	}
	return New(lib), lib
}

func traversal(t *testing.T, lib *expr.Library, names ...string) []int {
	t.Helper()
	out := make([]int, len(names))
	for i, name := range names {
		tok, ok := lib.TokenByName(name)
		if !ok {
			t.Fatalf("unknown token %q", name)
		}
		out[i] = tok.ID
	}
	return out
}

func TestResolveDeduplicates(t *testing.T) {
	c, lib := newTestCache(t)
	tr := traversal(t, lib, "add", "x1", "x1")

	first, created, err := c.Resolve(tr, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !created {
		t.Fatal("first resolve should create")
	}

	second, created, err := c.Resolve(tr, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if created {
		t.Fatal("second resolve should reuse")
	}
	if first != second {
		t.Fatal("duplicate key must return the same candidate")
	}
	if got := c.Count("add,x1,x1"); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
	if c.Len() != 1 {
		t.Fatalf("distinct keys = %d, want 1", c.Len())
	}
}

func TestResolvedCandidateEvaluatedOnce(t *testing.T) {
	c, lib := newTestCache(t)
	tr := traversal(t, lib, "x1")

	cand, _, err := c.Resolve(tr, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	cand.Finalize(nil, 0.9, 0.9, "", "")

	again, created, err := c.Resolve(tr, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if created || !again.Evaluated || again.Reward != 0.9 {
		t.Fatalf("cached outcome lost: created=%v %+v", created, again)
	}
}

func TestSnapshotSortsAndFilters(t *testing.T) {
	c, lib := newTestCache(t)

	low, _, _ := c.Resolve(traversal(t, lib, "x1"), true)
	low.Finalize(nil, 0.2, 0.2, "", "")
	high, _, _ := c.Resolve(traversal(t, lib, "sin", "x1"), true)
	high.Finalize(nil, 0.8, 0.8, "", "")
	mid, _, _ := c.Resolve(traversal(t, lib, "cos", "x1"), true)
	mid.Finalize(nil, 0.5, 0.5, "", "")

	snap := c.Snapshot(0.3)
	if len(snap) != 2 {
		t.Fatalf("snapshot rows = %d, want 2", len(snap))
	}
	if snap[0].Key != "sin,x1" || snap[1].Key != "cos,x1" {
		t.Fatalf("snapshot order: %+v", snap)
	}
}

func TestErrorStatsWeightedByCount(t *testing.T) {
	c, lib := newTestCache(t)
	tr := traversal(t, lib, "log", "x1")

	cand, _, err := c.Resolve(tr, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	cand.Finalize(nil, 0, 0, expr.ErrKindDomain, "log")

	// Re-sample the same invalid candidate twice more.
	for i := 0; i < 2; i++ {
		if _, _, err := c.Resolve(tr, true); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	ok, _, err := c.Resolve(traversal(t, lib, "x1"), true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	ok.Finalize(nil, 1, 1, "", "")

	stats := c.ErrorStats()
	if stats.Invalid != 3 {
		t.Fatalf("invalid = %d, want 3", stats.Invalid)
	}
	if stats.ByKind[expr.ErrKindDomain] != 3 {
		t.Fatalf("by kind = %v", stats.ByKind)
	}
	if stats.ByNode["log"] != 3 {
		t.Fatalf("by node = %v", stats.ByNode)
	}
}
