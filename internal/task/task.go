package task

import "exprsearch/internal/expr"

// Result is the outcome of one candidate evaluation: fitted constants (nil
// when the candidate has none), the raw reward, the penalized reward, and
// the failure taxonomy when evaluation went invalid. Evaluate is pure with
// respect to shared state so it can run on a worker against a snapshot.
type Result struct {
	Constants  []float64
	BaseReward float64
	Reward     float64
	ErrKind    string
	ErrNode    string
}

// Task is the reward-side collaborator of the training loop.
type Task interface {
	Name() string
	Library() *expr.Library
	// Stochastic reports whether repeated reward computations of the same
	// traversal can differ. Stochastic tasks cannot carry constant tokens.
	Stochastic() bool
	// Evaluate fits constants (when present) and computes the reward for a
	// candidate snapshot.
	Evaluate(c *expr.Candidate) Result
	// Metrics computes the full evaluation bundle, including "success".
	Metrics(c *expr.Candidate) expr.Metrics
}
