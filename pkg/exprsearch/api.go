// Package exprsearch exposes the training loop, its persisted artifacts and
// the benchmark tasks behind a small client facade.
package exprsearch

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"exprsearch/internal/evolve"
	"exprsearch/internal/model"
	"exprsearch/internal/policy"
	"exprsearch/internal/sampler"
	"exprsearch/internal/stats"
	"exprsearch/internal/storage"
	"exprsearch/internal/task"
	"exprsearch/internal/train"
)

const defaultDBPath = "exprsearch.db"

type Options struct {
	StoreKind string
	DBPath    string
	// Logger receives epoch and run statistics; nil disables logging.
	Logger *zerolog.Logger
}

type Client struct {
	store storage.Store
	log   zerolog.Logger
}

type RunRequest struct {
	Benchmark string
	BatchSize int
	NSamples  int
	NEpochs   int
	MaxLength int

	Epsilon    float64
	Baseline   string
	Alpha      float64
	BJumpstart bool

	EarlyStopping   bool
	EvalAll         bool
	TrackBaseReward bool

	UseMemory      bool
	MemoryCapacity int

	PriorityK    int
	AuxBatchSize int

	Evolve         bool
	EvolveRows     int
	EvolveFeedback bool

	Workers int
	Seed    int64
}

type RunSummary struct {
	RunID          string
	Benchmark      string
	BestExpression string
	BestReward     float64
	Success        bool
	Epochs         int
	NSamples       int
	Distinct       int
	Invalid        int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	return &Client{store: store, log: log}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Benchmarks lists the available regression benchmark names.
func (c *Client) Benchmarks() []string {
	return task.BenchmarkNames()
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Benchmark == "" {
		req.Benchmark = "nguyen4"
	}
	if req.BatchSize <= 0 {
		req.BatchSize = 100
	}
	if req.NSamples <= 0 && req.NEpochs <= 0 {
		req.NSamples = 20000
	}
	if req.MaxLength <= 0 {
		req.MaxLength = 32
	}
	if req.Epsilon == 0 {
		req.Epsilon = 0.05
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}
	if req.Evolve && req.EvolveRows <= 0 {
		req.EvolveRows = req.BatchSize / 4
	}

	var baseline policy.BaselineMode
	if req.Baseline != "" {
		mode, err := policy.ParseBaselineMode(req.Baseline)
		if err != nil {
			return RunSummary{}, err
		}
		baseline = mode
	}

	tsk, err := task.Benchmark(req.Benchmark, req.Seed)
	if err != nil {
		return RunSummary{}, err
	}

	smp, err := sampler.NewRandom(sampler.Config{
		Library:        tsk.Library(),
		MaxLength:      req.MaxLength,
		Seed:           req.Seed,
		PriorityBuffer: req.PriorityK > 0,
		PriorityK:      req.PriorityK,
		AuxBatchSize:   req.AuxBatchSize,
	})
	if err != nil {
		return RunSummary{}, err
	}

	var evolution train.EvolutionarySearch
	if req.Evolve {
		mut, err := evolve.NewMutator(evolve.Config{
			Library:   tsk.Library(),
			MaxLength: req.MaxLength,
			Rows:      req.EvolveRows,
			Seed:      req.Seed + 1,
			FeedBack:  req.EvolveFeedback,
		})
		if err != nil {
			return RunSummary{}, err
		}
		evolution = mut
	}

	if err := c.store.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	effectiveBaseline := baseline
	if effectiveBaseline == "" {
		effectiveBaseline = policy.BaselineQuantile
		if req.Epsilon <= 0 || req.Epsilon >= 1 {
			effectiveBaseline = policy.BaselineEWMA
		}
	}

	runID := uuid.NewString()
	info := stats.RunInfo{
		ID:        runID,
		Task:      req.Benchmark,
		Seed:      req.Seed,
		BatchSize: req.BatchSize,
		Epsilon:   req.Epsilon,
		Baseline:  string(effectiveBaseline),
	}
	sink := stats.Multi{
		stats.NewLogger(c.log.With().Str("run_id", runID).Logger()),
		stats.NewRecorder(info, c.store, c.log),
	}

	learner, err := train.NewLearner(train.Config{
		Task:            tsk,
		Sampler:         smp,
		Evolution:       evolution,
		Sink:            sink,
		BatchSize:       req.BatchSize,
		NSamples:        req.NSamples,
		NEpochs:         req.NEpochs,
		Epsilon:         req.Epsilon,
		Baseline:        baseline,
		Alpha:           req.Alpha,
		BJumpstart:      req.BJumpstart,
		EarlyStopping:   req.EarlyStopping,
		EvalAll:         req.EvalAll,
		TrackBaseReward: req.TrackBaseReward,
		UseMemory:       req.UseMemory,
		MemoryCapacity:  req.MemoryCapacity,
		Workers:         req.Workers,
		Seed:            req.Seed,
	})
	if err != nil {
		return RunSummary{}, err
	}

	result, err := learner.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:          runID,
		Benchmark:      req.Benchmark,
		BestExpression: result.BestKey,
		BestReward:     result.BestReward,
		Success:        result.Success,
		Epochs:         result.Epochs,
		NSamples:       result.NSamples,
		Distinct:       result.DistinctCandidates,
		Invalid:        result.ErrorStats.Invalid,
	}, nil
}

func (c *Client) Runs(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListRuns(ctx, limit)
}

func (c *Client) Epochs(ctx context.Context, runID string) ([]model.EpochRecord, error) {
	id, err := c.resolveRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	epochs, ok, err := c.store.GetEpochStats(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no epoch statistics for run: %s", id)
	}
	return epochs, nil
}

func (c *Client) Top(ctx context.Context, runID string, limit int) ([]model.HallOfFameEntry, error) {
	id, err := c.resolveRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	entries, ok, err := c.store.GetHallOfFame(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no hall of fame for run: %s", id)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (c *Client) CacheSnapshot(ctx context.Context, runID string, limit int) ([]model.CacheEntry, error) {
	id, err := c.resolveRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	entries, ok, err := c.store.GetCacheSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no cache snapshot for run: %s", id)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (c *Client) Errors(ctx context.Context, runID string) (model.ErrorHistogram, error) {
	id, err := c.resolveRunID(ctx, runID)
	if err != nil {
		return model.ErrorHistogram{}, err
	}
	histogram, ok, err := c.store.GetErrorHistogram(ctx, id)
	if err != nil {
		return model.ErrorHistogram{}, err
	}
	if !ok {
		return model.ErrorHistogram{}, fmt.Errorf("no error histogram for run: %s", id)
	}
	return histogram, nil
}

// resolveRunID maps an empty id to the most recent run.
func (c *Client) resolveRunID(ctx context.Context, runID string) (string, error) {
	if err := c.store.Init(ctx); err != nil {
		return "", err
	}
	if runID != "" {
		return runID, nil
	}
	runs, err := c.store.ListRuns(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs recorded")
	}
	return runs[0].ID, nil
}
