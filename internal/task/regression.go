package task

import (
	"fmt"
	"math"

	"exprsearch/internal/expr"
)

// RegressionConfig describes a dataset-fitting task. Test data defaults to
// the training data when absent.
type RegressionConfig struct {
	Name             string
	Library          *expr.Library
	TrainX           [][]float64
	TrainY           []float64
	TestX            [][]float64
	TestY            []float64
	ComplexityKind   string  // "" disables the penalty, else "length" or "token"
	ComplexityWeight float64 //
	SuccessNMSE      float64 // default 1e-12
	ConstOpt         *ConstOptimizer
}

// Regression rewards candidates by inverse NRMSE on the training split and
// reports success against an NMSE threshold on the test split.
type Regression struct {
	cfg    RegressionConfig
	stdY   float64
	varY   float64
	varYTe float64
}

func NewRegression(cfg RegressionConfig) (*Regression, error) {
	if cfg.Library == nil {
		return nil, fmt.Errorf("library is required")
	}
	if len(cfg.TrainX) == 0 || len(cfg.TrainX) != len(cfg.TrainY) {
		return nil, fmt.Errorf("training data mismatch: x=%d y=%d", len(cfg.TrainX), len(cfg.TrainY))
	}
	if len(cfg.TestX) != len(cfg.TestY) {
		return nil, fmt.Errorf("test data mismatch: x=%d y=%d", len(cfg.TestX), len(cfg.TestY))
	}
	if len(cfg.TestX) == 0 {
		cfg.TestX = cfg.TrainX
		cfg.TestY = cfg.TrainY
	}
	if cfg.SuccessNMSE <= 0 {
		cfg.SuccessNMSE = 1e-12
	}
	if cfg.Name == "" {
		cfg.Name = "regression"
	}
	r := &Regression{cfg: cfg}
	r.varY = variance(cfg.TrainY)
	r.varYTe = variance(cfg.TestY)
	r.stdY = math.Sqrt(r.varY)
	if r.stdY == 0 {
		return nil, fmt.Errorf("training target has zero variance")
	}
	return r, nil
}

func (r *Regression) Name() string           { return r.cfg.Name }
func (r *Regression) Library() *expr.Library { return r.cfg.Library }
func (r *Regression) Stochastic() bool       { return false }

// Evaluate fits constants when present, then computes inverse-NRMSE reward
// and the complexity-penalized variant.
func (r *Regression) Evaluate(c *expr.Candidate) Result {
	consts := append([]float64(nil), c.Constants...)
	if c.NeedsConstants() && r.cfg.ConstOpt != nil {
		consts = r.cfg.ConstOpt.Fit(c.Key, consts, func(vals []float64) (float64, bool) {
			rmse, execErr := r.rmse(c.Traversal, vals, r.cfg.TrainX, r.cfg.TrainY)
			if execErr != nil {
				return 0, false
			}
			return -rmse, true
		})
	}

	rmse, execErr := r.rmse(c.Traversal, consts, r.cfg.TrainX, r.cfg.TrainY)
	if execErr != nil {
		return Result{Constants: consts, ErrKind: execErr.kind, ErrNode: execErr.node}
	}
	nrmse := rmse / r.stdY
	base := 1.0 / (1.0 + nrmse)
	reward := base
	if r.cfg.ComplexityKind != "" && r.cfg.ComplexityWeight != 0 {
		reward = base - r.cfg.ComplexityWeight*c.Complexity(r.cfg.Library, r.cfg.ComplexityKind)
	}
	return Result{Constants: consts, BaseReward: base, Reward: reward}
}

// Metrics computes the test-split bundle. Invalid candidates never succeed.
func (r *Regression) Metrics(c *expr.Candidate) expr.Metrics {
	m := expr.Metrics{"success": false, "nmse_test": math.Inf(1)}
	if c.Invalid {
		m["error_kind"] = c.ErrKind
		return m
	}
	rmse, execErr := r.rmse(c.Traversal, c.Constants, r.cfg.TestX, r.cfg.TestY)
	if execErr != nil {
		m["error_kind"] = execErr.kind
		return m
	}
	nmse := rmse * rmse / r.varYTe
	m["nmse_test"] = nmse
	m["success"] = nmse <= r.cfg.SuccessNMSE
	return m
}

func (r *Regression) rmse(traversal []int, consts []float64, xs [][]float64, ys []float64) (float64, *execError) {
	total := 0.0
	for i, x := range xs {
		v, err := execTraversal(r.cfg.Library, traversal, consts, x)
		if err != nil {
			return 0, err
		}
		d := v - ys[i]
		total += d * d
	}
	return math.Sqrt(total / float64(len(xs))), nil
}

func variance(ys []float64) float64 {
	if len(ys) == 0 {
		return 0
	}
	mean := 0.0
	for _, y := range ys {
		mean += y
	}
	mean /= float64(len(ys))
	total := 0.0
	for _, y := range ys {
		d := y - mean
		total += d * d
	}
	return total / float64(len(ys))
}
