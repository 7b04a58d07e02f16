package sampler

import (
	"testing"

	"exprsearch/internal/expr"
	"exprsearch/internal/replay"
)

func newRandomSampler(t *testing.T, maxLength int) (*Random, *expr.Library) {
	t.Helper()
	lib, err := expr.DefaultLibrary(1, false)
	if err != nil {
		t.Fatalf("default library: %v", err)
	}
	s, err := NewRandom(Config{Library: lib, MaxLength: maxLength, Seed: 11})
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	return s, lib
}

func TestSampleRowsAreComplete(t *testing.T) {
	s, lib := newRandomSampler(t, 16)
	actions, obs, priors, err := s.Sample(32)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(actions) != 32 || len(obs.Prev) != 32 || len(priors) != 32 {
		t.Fatalf("row counts: actions=%d obs=%d priors=%d", len(actions), len(obs.Prev), len(priors))
	}
	for i, row := range actions {
		if len(row) != 16 {
			t.Fatalf("row %d width = %d, want 16", i, len(row))
		}
		if tr := expr.Traversal(row, lib, 16); tr == nil {
			t.Fatalf("row %d is structurally incomplete: %v", i, row)
		}
	}
}

func TestSampleIsSeeded(t *testing.T) {
	a, _ := newRandomSampler(t, 8)
	b, _ := newRandomSampler(t, 8)
	rowsA, _, _, err := a.Sample(4)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	rowsB, _, _, err := b.Sample(4)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	for i := range rowsA {
		for j := range rowsA[i] {
			if rowsA[i][j] != rowsB[i][j] {
				t.Fatalf("same seed diverged at row %d", i)
			}
		}
	}
}

func TestTrainStepValidatesAndCounts(t *testing.T) {
	s, lib := newRandomSampler(t, 8)
	actions, obs, priors, err := s.Sample(3)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	batch := replay.Batch{
		Actions:  actions,
		Obs:      obs,
		Priors:   priors,
		Lengths:  make([]int32, 3),
		Rewards:  []float64{0.1, 0.2, 0.3},
		OnPolicy: []bool{true, true, true},
	}
	for i, row := range actions {
		batch.Lengths[i] = int32(expr.CompleteLength(row, lib, 8))
	}

	summary, err := s.TrainStep(0.5, batch, nil)
	if err != nil {
		t.Fatalf("train step: %v", err)
	}
	if summary["baseline"] != 0.5 || summary["batch_size"] != 3 {
		t.Fatalf("summary = %v", summary)
	}
	if s.TrainSteps() != 1 {
		t.Fatalf("train steps = %d, want 1", s.TrainSteps())
	}

	batch.Rewards = nil
	if _, err := s.TrainStep(0.5, batch, nil); err == nil {
		t.Fatal("expected error for misshapen batch")
	}
}

func TestPriorityBufferDefaults(t *testing.T) {
	lib, err := expr.DefaultLibrary(1, false)
	if err != nil {
		t.Fatalf("default library: %v", err)
	}
	s, err := NewRandom(Config{Library: lib, MaxLength: 8, PriorityBuffer: true})
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	if !s.UsesPriorityBuffer() || s.PriorityBufferCapacity() != 10 || s.AuxBatchSize() != 1 {
		t.Fatalf("priority defaults: k=%d aux=%d", s.PriorityBufferCapacity(), s.AuxBatchSize())
	}
}
