package train

import (
	"fmt"

	"exprsearch/internal/policy"
	"exprsearch/internal/task"
)

// Config drives one training run. Zero values fall back to the defaults
// noted per field; invalid combinations fail fast in NewLearner.
type Config struct {
	Task    task.Task
	Sampler Sampler

	// Evolution optionally injects external candidates each epoch.
	Evolution EvolutionarySearch
	// Sink receives per-epoch statistics; nil means discard.
	Sink StatsSink

	BatchSize int
	// Exactly one of NSamples (total sample budget) and NEpochs may be set;
	// with NSamples, the epoch count is NSamples / BatchSize.
	NSamples int
	NEpochs  int

	// Epsilon is the risk-seeking fraction: train on the top epsilon of the
	// batch. Values outside (0, 1) disable risk seeking.
	Epsilon float64

	Baseline   policy.BaselineMode
	Alpha      float64 // EWMA smoothing, default 0.5
	BJumpstart bool

	EarlyStopping bool
	EvalAll       bool

	// TrackBaseReward also tracks the pre-penalty reward and uses it for
	// filtering and best-candidate selection.
	TrackBaseReward bool

	UseMemory      bool
	MemoryCapacity int // default 1000
	WarmStart      int // memory warm-start sample count, default BatchSize

	// Workers sizes the evaluation pool; <= 1 evaluates serially.
	Workers int
	Seed    int64

	// CacheSnapshotRMin filters the end-of-run cache snapshot.
	CacheSnapshotRMin float64
}

func (c *Config) riskSeeking() bool {
	return c.Epsilon > 0 && c.Epsilon < 1
}

func (c *Config) validate() error {
	if c.Task == nil {
		return fmt.Errorf("task is required")
	}
	if c.Sampler == nil {
		return fmt.Errorf("sampler is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be > 0")
	}
	if c.NSamples > 0 && c.NEpochs > 0 {
		return fmt.Errorf("at most one of n_samples and n_epochs may be set")
	}
	if c.NSamples <= 0 && c.NEpochs <= 0 {
		return fmt.Errorf("one of n_samples or n_epochs is required")
	}
	if c.Epsilon < 0 {
		return fmt.Errorf("epsilon must be >= 0, got %v", c.Epsilon)
	}
	if c.UseMemory && !c.riskSeeking() {
		return fmt.Errorf("memory-queue quantile estimation requires risk seeking (epsilon in (0, 1))")
	}
	if !c.riskSeeking() {
		switch c.Baseline {
		case "", policy.BaselineEWMA:
		default:
			return fmt.Errorf("baseline %q requires risk seeking", c.Baseline)
		}
	}
	if c.Task.Stochastic() && c.Task.Library().ConstToken() >= 0 {
		return fmt.Errorf("constant tokens are not supported with stochastic tasks")
	}
	if c.Sampler.MaxLength() <= 0 {
		return fmt.Errorf("sampler max length must be > 0")
	}
	if c.Sampler.UsesPriorityBuffer() {
		if c.Sampler.PriorityBufferCapacity() <= 0 {
			return fmt.Errorf("priority buffer capacity must be > 0")
		}
		if c.Sampler.AuxBatchSize() <= 0 {
			return fmt.Errorf("auxiliary batch size must be > 0")
		}
	}
	return nil
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Alpha == 0 {
		out.Alpha = 0.5
	}
	if out.Baseline == "" {
		out.Baseline = policy.BaselineQuantile
		if !out.riskSeeking() {
			out.Baseline = policy.BaselineEWMA
		}
	}
	if out.MemoryCapacity <= 0 {
		out.MemoryCapacity = 1000
	}
	if out.WarmStart <= 0 {
		out.WarmStart = out.BatchSize
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.Sink == nil {
		out.Sink = NopSink{}
	}
	if out.NEpochs <= 0 {
		out.NEpochs = out.NSamples / out.BatchSize
		if out.NEpochs <= 0 {
			out.NEpochs = 1
		}
	}
	return out
}
