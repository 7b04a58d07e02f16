package train

import (
	"context"
	"fmt"
	"math"
	"time"

	"exprsearch/internal/cache"
	"exprsearch/internal/evalpool"
	"exprsearch/internal/expr"
	"exprsearch/internal/policy"
	"exprsearch/internal/replay"
)

// Learner runs the risk-seeking policy-gradient training loop. Each epoch
// moves through SAMPLING, EVALUATING, FILTERING, UPDATING and DECIDING; all
// shared state (cache, memory, priority buffer) is mutated only by the
// goroutine calling Run.
type Learner struct {
	cfg Config

	cache    *cache.Cache
	pool     *evalpool.Pool
	baseline *policy.Baseline
	memory   *replay.Memory
	pq       *replay.PriorityBuffer
}

func NewLearner(cfg Config) (*Learner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	l := &Learner{cfg: cfg}
	l.cache = cache.New(cfg.Task.Library())

	pool, err := evalpool.New(cfg.Task, cfg.Workers)
	if err != nil {
		return nil, err
	}
	l.pool = pool

	l.baseline, err = policy.NewBaseline(cfg.Baseline, cfg.Alpha, cfg.BJumpstart)
	if err != nil {
		return nil, err
	}

	if cfg.Sampler.UsesPriorityBuffer() {
		l.pq, err = replay.NewPriorityBuffer(cfg.Sampler.PriorityBufferCapacity(), cfg.Seed)
		if err != nil {
			return nil, err
		}
	}
	if cfg.UseMemory {
		l.memory, err = replay.NewMemory(cfg.MemoryCapacity)
		if err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Cache exposes the run's candidate cache for reporting.
func (l *Learner) Cache() *cache.Cache { return l.cache }

// epochBatch is the fully evaluated material of one epoch before filtering.
type epochBatch struct {
	batch replay.Batch
	cands []*expr.Candidate
	// nOnPolicy is the sampler's row count; evolutionary rows sit at
	// indices >= nOnPolicy by construction.
	nOnPolicy int
}

func (l *Learner) Run(ctx context.Context) (Result, error) {
	cfg := l.cfg

	if cfg.UseMemory {
		if err := l.warmStart(ctx); err != nil {
			return Result{}, fmt.Errorf("memory warm start: %w", err)
		}
	}

	rBest := math.Inf(-1)
	baseRBest := math.Inf(-1)
	var prevRBest, prevBaseRBest float64
	prevSet := false
	var pBest, pBaseBest, pFinal *expr.Candidate

	nevals := 0
	epoch := 0

	for ; epoch < cfg.NEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		start := time.Now()

		// SAMPLING
		eb, err := l.sampleEpoch(ctx, &nevals)
		if err != nil {
			return Result{}, err
		}

		// EVALUATING
		if err := l.pool.EvaluateAll(ctx, eb.cands); err != nil {
			return Result{}, err
		}
		full := l.collectMetrics(eb.cands)
		eb.batch.Rewards = append([]float64(nil), full.Rewards...)
		var anySuccess bool
		if cfg.EvalAll {
			for _, c := range eb.cands {
				l.ensureMetrics(c)
				if c.Metrics().Success() {
					anySuccess = true
					if pFinal == nil {
						pFinal = c
					}
				}
			}
		}

		filterVec := full.Rewards
		if cfg.TrackBaseReward {
			filterVec = full.BaseRewards
		}
		rMax := policy.Max(full.Rewards)
		if rMax > rBest {
			rBest = rMax
		}
		baseRMax := math.Inf(-1)
		if cfg.TrackBaseReward {
			baseRMax = policy.Max(full.BaseRewards)
			if baseRMax > baseRBest {
				baseRBest = baseRMax
			}
		}

		// FILTERING
		quantile := 0.0
		degenerate := false
		filtered := *eb
		trainBatch := eb.batch
		if cfg.riskSeeking() {
			quantile, degenerate, err = l.computeQuantile(full, filterVec)
			if err != nil {
				return Result{}, err
			}
			keep := make([]bool, len(filterVec))
			for i, v := range filterVec {
				keep[i] = v >= quantile
			}
			filtered = epochBatch{
				batch:     eb.batch.Filter(keep),
				cands:     filterCands(eb.cands, keep),
				nOnPolicy: countTrue(keep[:eb.nOnPolicy]),
			}
			trainKeep := keep
			if cfg.Evolution != nil && !cfg.Evolution.FeedsBackToSampler() {
				trainKeep = append([]bool(nil), keep...)
				for i := eb.nOnPolicy; i < len(trainKeep); i++ {
					trainKeep[i] = false
				}
			}
			trainBatch = eb.batch.Filter(trainKeep)
		}

		filtered.batch.Rewards = policy.ClipAll(filtered.batch.Rewards)
		trainBatch.Rewards = policy.ClipAll(trainBatch.Rewards)

		bTrain := l.baseline.Update(trainBatch.Rewards, quantile)

		// UPDATING
		var aux *replay.Batch
		if l.pq != nil {
			l.pq.PushBest(filtered.batch, filtered.cands)
			sampled, err := l.pq.SampleBatch(cfg.Sampler.AuxBatchSize())
			if err != nil {
				return Result{}, err
			}
			aux = &sampled
		}
		summary, err := cfg.Sampler.TrainStep(bTrain, trainBatch, aux)
		if err != nil {
			return Result{}, fmt.Errorf("train step at epoch %d: %w", epoch, err)
		}
		if l.memory != nil {
			l.memory.PushBatch(filtered.batch, filtered.cands)
		}

		newBest := false
		if len(filtered.cands) > 0 {
			if !prevSet || rMax > prevRBest {
				newBest = true
				pBest = filtered.cands[policy.ArgMax(filtered.batch.Rewards)]
			}
			if cfg.TrackBaseReward && (!prevSet || baseRMax > prevBaseRBest) {
				newBest = true
				idx := argMaxBaseReward(filtered.cands)
				if idx >= 0 {
					pBaseBest = filtered.cands[idx]
				}
			}
		}
		prevRBest = rBest
		prevBaseRBest = baseRBest
		prevSet = true

		ewma, ewmaSet := l.baseline.EWMA()
		cfg.Sink.LogEpoch(EpochStats{
			Epoch:        epoch,
			NSamples:     nevals,
			Full:         full,
			Filtered:     l.collectMetrics(filtered.cands),
			RiskSeeking:  cfg.riskSeeking(),
			Quantile:     quantile,
			Baseline:     bTrain,
			EWMA:         ewma,
			EWMASet:      ewmaSet,
			Summary:      summary,
			DistinctKeys: l.cache.Len(),
			Degenerate:   degenerate,
			NewBest:      newBest,
			BestReward:   rBest,
			BestKey:      bestKey(pFinal, pBaseBest, pBest),
			WallTime:     time.Since(start),
		})

		// DECIDING
		if cfg.EvalAll && anySuccess {
			epoch++
			break
		}
		tracked := pBest
		if cfg.TrackBaseReward && pBaseBest != nil {
			tracked = pBaseBest
		}
		if cfg.EarlyStopping && tracked != nil {
			l.ensureMetrics(tracked)
			if tracked.Metrics().Success() {
				epoch++
				break
			}
		}
		if cfg.NSamples > 0 && nevals > cfg.NSamples {
			epoch++
			break
		}
	}

	result := l.assembleResult(pFinal, pBest, pBaseBest, rBest, baseRBest, epoch, nevals)
	cfg.Sink.LogRun(result)
	return result, nil
}

// sampleEpoch requests the on-policy batch and merges evolutionary rows,
// resolving every row through the cache. Evolutionary rows are appended
// strictly after on-policy rows; the row accounting below depends on it.
func (l *Learner) sampleEpoch(ctx context.Context, nevals *int) (*epochBatch, error) {
	cfg := l.cfg
	actions, obs, priors, err := cfg.Sampler.Sample(cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}
	if len(actions) != cfg.BatchSize {
		return nil, fmt.Errorf("sampler returned %d rows, want %d", len(actions), cfg.BatchSize)
	}
	*nevals += cfg.BatchSize

	nOnPolicy := len(actions)
	if cfg.Evolution != nil {
		aug, err := cfg.Evolution.Augment(ctx, actions)
		if err != nil {
			return nil, fmt.Errorf("evolutionary augment: %w", err)
		}
		if len(aug.Obs.Prev) != len(aug.Actions) || len(aug.Priors) != len(aug.Actions) {
			return nil, fmt.Errorf("evolutionary rows misshapen: actions=%d obs=%d priors=%d",
				len(aug.Actions), len(aug.Obs.Prev), len(aug.Priors))
		}
		actions = append(actions, aug.Actions...)
		obs.Prev = append(obs.Prev, aug.Obs.Prev...)
		obs.Parent = append(obs.Parent, aug.Obs.Parent...)
		obs.Sibling = append(obs.Sibling, aug.Obs.Sibling...)
		priors = append(priors, aug.Priors...)
		*nevals += aug.NEvals
	}

	cands := make([]*expr.Candidate, len(actions))
	lengths := make([]int32, len(actions))
	for i, row := range actions {
		c, err := l.resolveRow(row, i < nOnPolicy)
		if err != nil {
			return nil, err
		}
		cands[i] = c
		n := c.Length()
		if n > cfg.Sampler.MaxLength() {
			n = cfg.Sampler.MaxLength()
		}
		lengths[i] = int32(n)
	}

	batch := replay.Batch{
		Actions:  actions,
		Obs:      obs,
		Priors:   priors,
		Lengths:  lengths,
		Rewards:  make([]float64, len(actions)),
		OnPolicy: make([]bool, len(actions)),
	}
	for i, c := range cands {
		batch.OnPolicy[i] = c.OnPolicy
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	return &epochBatch{batch: batch, cands: cands, nOnPolicy: nOnPolicy}, nil
}

// resolveRow turns an action row into its canonical cached candidate. Rows
// that never complete structurally become invalid candidates instead of
// errors.
func (l *Learner) resolveRow(row []int32, onPolicy bool) (*expr.Candidate, error) {
	lib := l.cfg.Task.Library()
	maxLength := l.cfg.Sampler.MaxLength()
	traversal := expr.Traversal(row, lib, maxLength)
	if traversal == nil {
		traversal = prefixTraversal(row, lib, maxLength)
		c, _, err := l.cache.Resolve(traversal, onPolicy)
		if err != nil {
			return nil, err
		}
		c.Finalize(nil, 0, 0, expr.ErrKindLength, "")
		return c, nil
	}
	c, _, err := l.cache.Resolve(traversal, onPolicy)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (l *Learner) computeQuantile(full MetricVectors, filterVec []float64) (float64, bool, error) {
	q := 1 - l.cfg.Epsilon
	if l.memory != nil && l.memory.Len() > 0 {
		return l.memory.WeightedQuantile(full.Keys, filterVec, q)
	}
	quantile, err := policy.Quantile(filterVec, q)
	return quantile, false, err
}

// warmStart seeds the replay memory with one evaluated batch before the
// first epoch.
func (l *Learner) warmStart(ctx context.Context) error {
	cfg := l.cfg
	actions, obs, priors, err := cfg.Sampler.Sample(cfg.WarmStart)
	if err != nil {
		return err
	}
	cands := make([]*expr.Candidate, len(actions))
	lengths := make([]int32, len(actions))
	for i, row := range actions {
		c, err := l.resolveRow(row, true)
		if err != nil {
			return err
		}
		cands[i] = c
		lengths[i] = int32(c.Length())
	}
	if err := l.pool.EvaluateAll(ctx, cands); err != nil {
		return err
	}
	batch := replay.Batch{
		Actions:  actions,
		Obs:      obs,
		Priors:   priors,
		Lengths:  lengths,
		Rewards:  make([]float64, len(cands)),
		OnPolicy: make([]bool, len(cands)),
	}
	for i, c := range cands {
		batch.Rewards[i] = c.Reward
		batch.OnPolicy[i] = c.OnPolicy
	}
	l.memory.PushBatch(batch, cands)
	return nil
}

func (l *Learner) collectMetrics(cands []*expr.Candidate) MetricVectors {
	m := MetricVectors{
		Rewards:  make([]float64, len(cands)),
		Lengths:  make([]int, len(cands)),
		Keys:     make([]string, len(cands)),
		Invalid:  make([]bool, len(cands)),
		OnPolicy: make([]bool, len(cands)),
	}
	if l.cfg.TrackBaseReward {
		m.BaseRewards = make([]float64, len(cands))
	}
	for i, c := range cands {
		m.Rewards[i] = c.Reward
		m.Lengths[i] = c.Length()
		m.Keys[i] = c.Key
		m.Invalid[i] = c.Invalid
		m.OnPolicy[i] = c.OnPolicy
		if m.BaseRewards != nil {
			m.BaseRewards[i] = c.BaseReward
		}
	}
	return m
}

func (l *Learner) ensureMetrics(c *expr.Candidate) {
	if c.Metrics() == nil {
		c.SetMetrics(l.cfg.Task.Metrics(c))
	}
}

func (l *Learner) assembleResult(pFinal, pBest, pBaseBest *expr.Candidate, rBest, baseRBest float64, epochs, nevals int) Result {
	best := pFinal
	if best == nil {
		if l.cfg.TrackBaseReward && pBaseBest != nil {
			best = pBaseBest
		} else {
			best = pBest
		}
	}
	result := Result{
		Epochs:             epochs,
		NSamples:           nevals,
		RBest:              rBest,
		BaseRBest:          baseRBest,
		DistinctCandidates: l.cache.Len(),
		ErrorStats:         l.cache.ErrorStats(),
		CacheSnapshot:      l.cache.Snapshot(l.cfg.CacheSnapshotRMin),
		FirstSuccess:       pFinal != nil,
	}
	if l.pq != nil {
		result.HallOfFame = l.pq.InOrder()
	}
	if best != nil {
		l.ensureMetrics(best)
		result.Best = best
		result.BestKey = best.Key
		result.BestReward = best.Reward
		result.BestBaseReward = best.BaseReward
		result.Metrics = best.Metrics()
		result.Success = best.Metrics().Success()
	}
	return result
}

func filterCands(cands []*expr.Candidate, keep []bool) []*expr.Candidate {
	out := make([]*expr.Candidate, 0, len(cands))
	for i, c := range cands {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

func countTrue(mask []bool) int {
	n := 0
	for _, b := range mask {
		if b {
			n++
		}
	}
	return n
}

func argMaxBaseReward(cands []*expr.Candidate) int {
	best := -1
	bestV := math.Inf(-1)
	for i, c := range cands {
		if c.BaseReward > bestV {
			best = i
			bestV = c.BaseReward
		}
	}
	return best
}

func bestKey(pFinal, pBaseBest, pBest *expr.Candidate) string {
	switch {
	case pFinal != nil:
		return pFinal.Key
	case pBaseBest != nil:
		return pBaseBest.Key
	case pBest != nil:
		return pBest.Key
	default:
		return ""
	}
}

// prefixTraversal keeps the raw row as a traversal for taxonomy purposes
// when it never completes.
func prefixTraversal(row []int32, lib *expr.Library, maxLength int) []int {
	out := make([]int, 0, maxLength)
	for i, a := range row {
		if i >= maxLength {
			break
		}
		id := int(a)
		if id < 0 || id >= lib.Len() {
			break
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		out = []int{0}
	}
	return out
}
