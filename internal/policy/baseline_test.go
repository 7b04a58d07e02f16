package policy

import (
	"math"
	"testing"
)

func TestParseBaselineMode(t *testing.T) {
	for _, s := range []string{"ewma_R", "R_e", "ewma_R_e", "combined"} {
		mode, err := ParseBaselineMode(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if string(mode) != s {
			t.Fatalf("parse %q = %q", s, mode)
		}
	}
	if mode, err := ParseBaselineMode(""); err != nil || mode != BaselineQuantile {
		t.Fatalf("empty mode = %q, %v", mode, err)
	}
	if _, err := ParseBaselineMode("bogus"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestBaselineQuantileIsIdentity(t *testing.T) {
	b, err := NewBaseline(BaselineQuantile, 0.5, false)
	if err != nil {
		t.Fatalf("new baseline: %v", err)
	}
	if got := b.Update([]float64{0.2, 0.4}, 0.37); got != 0.37 {
		t.Fatalf("baseline = %v, want the quantile", got)
	}
}

func TestBaselineEWMAOfMean(t *testing.T) {
	// Alpha one tracks the epoch mean exactly.
	b, err := NewBaseline(BaselineEWMA, 1.0, false)
	if err != nil {
		t.Fatalf("new baseline: %v", err)
	}
	if got := b.Update([]float64{0.2, 0.6}, 0); got != 0.4 {
		t.Fatalf("baseline = %v, want 0.4", got)
	}
	if got := b.Update([]float64{1.0, 1.0}, 0); got != 1.0 {
		t.Fatalf("baseline = %v, want 1.0", got)
	}
}

func TestBaselineEWMASmoothing(t *testing.T) {
	b, err := NewBaseline(BaselineEWMA, 0.5, false)
	if err != nil {
		t.Fatalf("new baseline: %v", err)
	}
	// Starts at zero without jumpstart, so the first update blends with it.
	got := b.Update([]float64{0.8}, 0)
	if got != 0.4 {
		t.Fatalf("baseline = %v, want 0.4", got)
	}
}

func TestBaselineEWMAJumpstart(t *testing.T) {
	b, err := NewBaseline(BaselineEWMA, 0.5, true)
	if err != nil {
		t.Fatalf("new baseline: %v", err)
	}
	if _, set := b.EWMA(); set {
		t.Fatal("jumpstart EWMA should start unset")
	}
	// First observation snaps the EWMA instead of blending with zero.
	if got := b.Update([]float64{0.8}, 0); got != 0.8 {
		t.Fatalf("baseline = %v, want 0.8", got)
	}
	if got := b.Update([]float64{0.4}, 0); math.Abs(got-0.6) > 1e-12 {
		t.Fatalf("baseline = %v, want 0.6", got)
	}
}

func TestBaselineEWMAQuantileStartsAtMin(t *testing.T) {
	b, err := NewBaseline(BaselineEWMAQuantile, 0.5, true)
	if err != nil {
		t.Fatalf("new baseline: %v", err)
	}
	if got := b.Update([]float64{0.3, 0.9}, 0.7); got != 0.3 {
		t.Fatalf("first baseline = %v, want the batch min", got)
	}
	// Second update blends the quantile with the stored state.
	if got := b.Update([]float64{0.5, 0.8}, 0.8); math.Abs(got-0.55) > 1e-12 {
		t.Fatalf("second baseline = %v, want 0.55", got)
	}
}

func TestBaselineCombined(t *testing.T) {
	b, err := NewBaseline(BaselineCombined, 1.0, true)
	if err != nil {
		t.Fatalf("new baseline: %v", err)
	}
	// mean - quantile = 0.1; baseline = quantile + ewma(delta).
	got := b.Update([]float64{0.7, 0.9}, 0.7)
	if math.Abs(got-0.8) > 1e-12 {
		t.Fatalf("baseline = %v, want 0.8", got)
	}
}

func TestNewBaselineRejectsBadAlpha(t *testing.T) {
	if _, err := NewBaseline(BaselineEWMA, 0, false); err == nil {
		t.Fatal("expected error for alpha 0")
	}
	if _, err := NewBaseline(BaselineEWMA, 1.5, false); err == nil {
		t.Fatal("expected error for alpha > 1")
	}
}
