package policy

import "fmt"

// BaselineMode selects the policy-gradient baseline formula. The gradient
// step downstream uses (R - b) * grad-log-prob, so the baseline controls
// which part of the reward distribution the sampler is pushed above.
type BaselineMode string

const (
	// BaselineEWMA tracks an EWMA of the retained-reward mean.
	BaselineEWMA BaselineMode = "ewma_R"
	// BaselineQuantile uses the risk-seeking quantile directly. Default.
	BaselineQuantile BaselineMode = "R_e"
	// BaselineEWMAQuantile tracks an EWMA of the quantile.
	BaselineEWMAQuantile BaselineMode = "ewma_R_e"
	// BaselineCombined adds an EWMA of (mean - quantile) on top of the
	// quantile.
	BaselineCombined BaselineMode = "combined"
)

func ParseBaselineMode(s string) (BaselineMode, error) {
	switch BaselineMode(s) {
	case BaselineEWMA, BaselineQuantile, BaselineEWMAQuantile, BaselineCombined:
		return BaselineMode(s), nil
	case "":
		return BaselineQuantile, nil
	default:
		return "", fmt.Errorf("unknown baseline mode: %s", s)
	}
}

// Baseline carries the EWMA state across epochs. With jumpstart the EWMA
// starts unset and snaps to its first observation; otherwise it starts at
// zero.
type Baseline struct {
	Mode  BaselineMode
	Alpha float64

	ewma    float64
	ewmaSet bool
}

func NewBaseline(mode BaselineMode, alpha float64, jumpstart bool) (*Baseline, error) {
	if _, err := ParseBaselineMode(string(mode)); err != nil {
		return nil, err
	}
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha must be in (0, 1], got %v", alpha)
	}
	b := &Baseline{Mode: mode, Alpha: alpha}
	if !jumpstart {
		b.ewma = 0.0
		b.ewmaSet = true
	}
	return b, nil
}

// Update advances the EWMA state for one epoch and returns the baseline.
// rTrain must already be clipped.
func (b *Baseline) Update(rTrain []float64, quantile float64) float64 {
	switch b.Mode {
	case BaselineEWMA:
		mean := Mean(rTrain)
		if !b.ewmaSet {
			b.ewma = mean
			b.ewmaSet = true
		} else {
			b.ewma = b.Alpha*mean + (1-b.Alpha)*b.ewma
		}
		return b.ewma
	case BaselineEWMAQuantile:
		if !b.ewmaSet {
			b.ewma = Min(rTrain)
			b.ewmaSet = true
		} else {
			b.ewma = b.Alpha*quantile + (1-b.Alpha)*b.ewma
		}
		return b.ewma
	case BaselineCombined:
		delta := Mean(rTrain) - quantile
		if !b.ewmaSet {
			b.ewma = delta
			b.ewmaSet = true
		} else {
			b.ewma = b.Alpha*delta + (1-b.Alpha)*b.ewma
		}
		return quantile + b.ewma
	default: // BaselineQuantile
		return quantile
	}
}

// EWMA exposes the smoothing state for statistics reporting.
func (b *Baseline) EWMA() (float64, bool) {
	return b.ewma, b.ewmaSet
}
