package replay

import (
	"testing"

	"exprsearch/internal/expr"
)

func pqRow(lib *expr.Library, tr []int) expr.Row {
	return lib.EncodeTraversal(tr, 8)
}

func pushOne(t *testing.T, p *PriorityBuffer, lib *expr.Library, reward float64, names ...string) {
	t.Helper()
	tr := make([]int, len(names))
	for i, name := range names {
		tok, ok := lib.TokenByName(name)
		if !ok {
			t.Fatalf("unknown token %q", name)
		}
		tr[i] = tok.ID
	}
	c, err := expr.NewCandidate(lib, tr, true)
	if err != nil {
		t.Fatalf("new candidate: %v", err)
	}
	c.Finalize(nil, reward, reward, "", "")
	row := pqRow(lib, tr)
	b := FromRows([]expr.Row{row}, []float64{reward}, []bool{true})
	p.PushBest(b, []*expr.Candidate{c})
}

func TestPriorityBufferKeepsTopK(t *testing.T) {
	lib, err := expr.DefaultLibrary(1, false)
	if err != nil {
		t.Fatalf("default library: %v", err)
	}
	p, err := NewPriorityBuffer(2, 1)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}

	pushOne(t, p, lib, 0.2, "x1")
	pushOne(t, p, lib, 0.8, "sin", "x1")
	pushOne(t, p, lib, 0.5, "cos", "x1")

	if p.Len() != 2 {
		t.Fatalf("len = %d, want 2", p.Len())
	}
	min, ok := p.MinReward()
	if !ok || min != 0.5 {
		t.Fatalf("min reward = %v (ok=%v), want 0.5", min, ok)
	}
	entries := p.InOrder()
	if entries[0].Key != "sin,x1" || entries[1].Key != "cos,x1" {
		t.Fatalf("in order: %+v", entries)
	}
}

func TestPriorityBufferTiesEvictOldest(t *testing.T) {
	lib, err := expr.DefaultLibrary(1, false)
	if err != nil {
		t.Fatalf("default library: %v", err)
	}
	p, err := NewPriorityBuffer(2, 1)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}

	pushOne(t, p, lib, 0.5, "x1")
	pushOne(t, p, lib, 0.5, "sin", "x1")
	pushOne(t, p, lib, 0.5, "cos", "x1")

	// The first equal-reward entry goes; the most recent one survives.
	if p.Len() != 2 {
		t.Fatalf("len = %d, want 2", p.Len())
	}
	keys := map[string]bool{}
	for _, e := range p.InOrder() {
		keys[e.Key] = true
	}
	if keys["x1"] {
		t.Fatal("oldest tied entry should have been evicted first")
	}
	if !keys["cos,x1"] {
		t.Fatal("most recent tied entry should survive")
	}
}

func TestPriorityBufferReadmitsOnlyImprovement(t *testing.T) {
	lib, err := expr.DefaultLibrary(1, false)
	if err != nil {
		t.Fatalf("default library: %v", err)
	}
	p, err := NewPriorityBuffer(4, 1)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}

	pushOne(t, p, lib, 0.5, "x1")
	pushOne(t, p, lib, 0.4, "x1")
	if p.Len() != 1 {
		t.Fatalf("len = %d, want 1", p.Len())
	}
	if entries := p.InOrder(); entries[0].Reward != 0.5 {
		t.Fatalf("worse duplicate overwrote reward: %+v", entries[0])
	}

	pushOne(t, p, lib, 0.7, "x1")
	if entries := p.InOrder(); entries[0].Reward != 0.7 {
		t.Fatalf("improved duplicate not admitted: %+v", entries[0])
	}
}

func TestPriorityBufferSampleBatch(t *testing.T) {
	lib, err := expr.DefaultLibrary(1, false)
	if err != nil {
		t.Fatalf("default library: %v", err)
	}
	p, err := NewPriorityBuffer(4, 1)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	pushOne(t, p, lib, 0.2, "x1")
	pushOne(t, p, lib, 0.8, "sin", "x1")
	pushOne(t, p, lib, 0.5, "cos", "x1")

	// Without replacement when the request fits.
	b, err := p.SampleBatch(3)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if b.Len() != 3 {
		t.Fatalf("batch len = %d, want 3", b.Len())
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("sampled batch invalid: %v", err)
	}
	seen := map[float64]int{}
	for _, r := range b.Rewards {
		seen[r]++
	}
	for r, n := range seen {
		if n != 1 {
			t.Fatalf("reward %v drawn %d times without replacement", r, n)
		}
	}

	// With replacement when the request exceeds the stored count.
	b, err = p.SampleBatch(7)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if b.Len() != 7 {
		t.Fatalf("batch len = %d, want 7", b.Len())
	}

	if _, err := p.SampleBatch(0); err == nil {
		t.Fatal("expected error for zero sample size")
	}
}

func TestPriorityBufferSampleFromEmpty(t *testing.T) {
	p, err := NewPriorityBuffer(2, 1)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	if _, err := p.SampleBatch(1); err == nil {
		t.Fatal("expected error for empty buffer")
	}
}
