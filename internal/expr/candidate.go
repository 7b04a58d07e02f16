package expr

import "fmt"

// Error kinds recorded on invalid candidates. These feed the aggregate
// taxonomy histogram; individual failures never abort an epoch.
const (
	ErrKindNaN      = "nan"
	ErrKindOverflow = "overflow"
	ErrKindDomain   = "domain"
	ErrKindLength   = "incomplete"
	ErrKindWorker   = "worker_failure"
)

// Metrics is the task-specific evaluation bundle. Keys are task-defined; the
// orchestrator only reads "success".
type Metrics map[string]any

func (m Metrics) Success() bool {
	v, ok := m["success"].(bool)
	return ok && v
}

// Candidate is an expression in prefix-traversal form together with its
// evaluation state. A Candidate is owned by the cache that created it;
// worker copies made for parallel evaluation never flow back, only their
// fitted constants and reward do.
type Candidate struct {
	Traversal []int
	Key       string

	Reward     float64
	BaseReward float64
	Evaluated  bool

	Invalid bool
	ErrKind string
	ErrNode string

	// OnPolicy is true when the sampler produced this traversal directly,
	// false for externally injected candidates.
	OnPolicy bool

	Constants []float64

	metrics Metrics
}

// NewCandidate builds an unevaluated candidate from a traversal. The
// traversal must be structurally complete.
func NewCandidate(lib *Library, traversal []int, onPolicy bool) (*Candidate, error) {
	if len(traversal) == 0 {
		return nil, fmt.Errorf("empty traversal")
	}
	for _, id := range traversal {
		if id < 0 || id >= lib.Len() {
			return nil, fmt.Errorf("token id %d outside library of size %d", id, lib.Len())
		}
	}
	c := &Candidate{
		Traversal: append([]int(nil), traversal...),
		Key:       lib.Key(traversal),
		OnPolicy:  onPolicy,
	}
	nConst := 0
	for _, id := range traversal {
		if id == lib.ConstToken() && lib.ConstToken() >= 0 {
			nConst++
		}
	}
	if nConst > 0 {
		c.Constants = make([]float64, nConst)
		for i := range c.Constants {
			c.Constants[i] = 1.0
		}
	}
	return c, nil
}

func (c *Candidate) Length() int { return len(c.Traversal) }

// NeedsConstants reports whether the candidate carries constant placeholders
// that require numeric fitting before its reward is final.
func (c *Candidate) NeedsConstants() bool { return len(c.Constants) > 0 }

// Snapshot returns an independent copy safe to hand to an evaluation worker.
func (c *Candidate) Snapshot() *Candidate {
	cp := *c
	cp.Traversal = append([]int(nil), c.Traversal...)
	cp.Constants = append([]float64(nil), c.Constants...)
	cp.metrics = nil
	return &cp
}

// Finalize records the evaluation outcome. It may be called exactly once;
// later calls are ignored so cached candidates stay immutable.
func (c *Candidate) Finalize(constants []float64, baseReward, reward float64, errKind, errNode string) {
	if c.Evaluated {
		return
	}
	if constants != nil {
		c.Constants = append([]float64(nil), constants...)
	}
	c.BaseReward = baseReward
	c.Reward = reward
	if errKind != "" {
		c.Invalid = true
		c.ErrKind = errKind
		c.ErrNode = errNode
	}
	c.Evaluated = true
}

// SetMetrics caches the task evaluation bundle; Metrics returns it (nil
// until set).
func (c *Candidate) SetMetrics(m Metrics) {
	if c.metrics == nil {
		c.metrics = m
	}
}

func (c *Candidate) Metrics() Metrics { return c.metrics }

// Complexity is the penalty term for the candidate under the library's
// per-token weights; kind "length" degenerates to the traversal length.
func (c *Candidate) Complexity(lib *Library, kind string) float64 {
	switch kind {
	case "", "length":
		return float64(len(c.Traversal))
	case "token":
		total := 0.0
		for _, id := range c.Traversal {
			total += lib.Token(id).Complexity
		}
		return total
	default:
		return float64(len(c.Traversal))
	}
}
