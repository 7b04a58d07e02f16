package train

import (
	"context"
	"time"

	"exprsearch/internal/replay"
)

// Summary carries whatever scalars a sampler's training step reports back.
type Summary map[string]float64

// Sampler is the autoregressive candidate generator being trained. The
// neural architecture and gradient step live behind this interface.
type Sampler interface {
	// Sample produces n rows of actions, observations and priors in the
	// batch shapes.
	Sample(n int) (actions [][]int32, obs replay.Obs, priors [][][]float32, err error)
	// TrainStep applies one policy-gradient update on the filtered batch.
	// aux is the priority-buffer batch, nil when priority-queue training is
	// off.
	TrainStep(baseline float64, batch replay.Batch, aux *replay.Batch) (Summary, error)
	MaxLength() int
	UsesPriorityBuffer() bool
	PriorityBufferCapacity() int
	AuxBatchSize() int
}

// AugmentedRows are externally generated candidate rows in the same
// row-major encoding as a sampled batch. They are always appended after the
// on-policy rows, never interleaved.
type AugmentedRows struct {
	Actions [][]int32
	Obs     replay.Obs
	Priors  [][][]float32
	// NEvals is how many extra reward evaluations the search performed on
	// its own, counted against the sample budget.
	NEvals int
}

// EvolutionarySearch optionally injects externally generated candidates
// each epoch, seeded with the on-policy action matrix.
type EvolutionarySearch interface {
	Augment(ctx context.Context, actions [][]int32) (AugmentedRows, error)
	// FeedsBackToSampler reports whether augmented rows may enter the
	// sampler's training step. When false they still compete for best
	// candidate and the buffers.
	FeedsBackToSampler() bool
}

// MetricVectors are the per-row metrics of a batch, captured both before
// and after risk-seeking filtering.
type MetricVectors struct {
	Rewards     []float64
	BaseRewards []float64 // nil unless base reward is tracked
	Lengths     []int
	Keys        []string
	Invalid     []bool
	OnPolicy    []bool
}

// EpochStats is the per-epoch payload handed to the statistics sink.
type EpochStats struct {
	Epoch        int
	NSamples     int
	Full         MetricVectors
	Filtered     MetricVectors
	RiskSeeking  bool
	Quantile     float64
	Baseline     float64
	EWMA         float64
	EWMASet      bool
	Summary      Summary
	DistinctKeys int
	Degenerate   bool
	NewBest      bool
	BestReward   float64
	BestKey      string
	WallTime     time.Duration
}

// StatsSink receives epoch statistics and the final run result. It persists
// independently of the training control flow; sink failures are the sink's
// problem.
type StatsSink interface {
	LogEpoch(stats EpochStats)
	LogRun(result Result)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) LogEpoch(EpochStats) {}
func (NopSink) LogRun(Result)       {}
