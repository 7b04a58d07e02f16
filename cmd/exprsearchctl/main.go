package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"exprsearch/internal/storage"
	searchapi "exprsearch/pkg/exprsearch"
)

const defaultDBPath = "exprsearch.db"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "epochs":
		return runEpochs(ctx, args[1:])
	case "top":
		return runTop(ctx, args[1:])
	case "cache":
		return runCache(ctx, args[1:])
	case "errors":
		return runErrors(ctx, args[1:])
	case "benchmarks":
		return runBenchmarks(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	configPath := fs.String("config", "", "JSON run config path; flags override")
	benchmark := fs.String("benchmark", "", "benchmark task name")
	batchSize := fs.Int("batch", 0, "candidates sampled per epoch")
	nSamples := fs.Int("samples", 0, "total sample budget")
	nEpochs := fs.Int("epochs", 0, "epoch count; mutually exclusive with -samples")
	maxLength := fs.Int("max-length", 0, "maximum traversal length")
	epsilon := fs.Float64("epsilon", 0, "risk-seeking fraction in (0, 1)")
	baseline := fs.String("baseline", "", "baseline mode: ewma_R|R_e|ewma_R_e|combined")
	alpha := fs.Float64("alpha", 0, "EWMA smoothing coefficient")
	bJumpstart := fs.Bool("b-jumpstart", false, "start the EWMA unset")
	earlyStopping := fs.Bool("early-stopping", false, "stop at the first success")
	evalAll := fs.Bool("eval-all", false, "compute full metrics for every candidate")
	trackBase := fs.Bool("track-base-reward", false, "filter and rank on the pre-penalty reward")
	useMemory := fs.Bool("memory", false, "estimate the quantile with a replay memory")
	memoryCapacity := fs.Int("memory-capacity", 0, "replay memory capacity")
	priorityK := fs.Int("priority-k", 0, "priority buffer size; 0 disables")
	auxBatch := fs.Int("aux-batch", 0, "priority-buffer samples per training step")
	evolve := fs.Bool("evolve", false, "inject mutated candidates each epoch")
	evolveRows := fs.Int("evolve-rows", 0, "mutated candidates per epoch")
	evolveFeedback := fs.Bool("evolve-feedback", false, "let mutated candidates enter the training step")
	workers := fs.Int("workers", 0, "parallel evaluation workers")
	seed := fs.Int64("seed", 0, "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var req searchapi.RunRequest
	if *configPath != "" {
		loaded, err := loadRunRequestFromConfig(*configPath)
		if err != nil {
			return err
		}
		req = loaded
	}
	if *benchmark != "" {
		req.Benchmark = *benchmark
	}
	if *batchSize > 0 {
		req.BatchSize = *batchSize
	}
	if *nSamples > 0 {
		req.NSamples = *nSamples
	}
	if *nEpochs > 0 {
		req.NEpochs = *nEpochs
	}
	if *maxLength > 0 {
		req.MaxLength = *maxLength
	}
	if *epsilon > 0 {
		req.Epsilon = *epsilon
	}
	if *baseline != "" {
		req.Baseline = *baseline
	}
	if *alpha > 0 {
		req.Alpha = *alpha
	}
	if *bJumpstart {
		req.BJumpstart = true
	}
	if *earlyStopping {
		req.EarlyStopping = true
	}
	if *evalAll {
		req.EvalAll = true
	}
	if *trackBase {
		req.TrackBaseReward = true
	}
	if *useMemory {
		req.UseMemory = true
	}
	if *memoryCapacity > 0 {
		req.MemoryCapacity = *memoryCapacity
	}
	if *priorityK > 0 {
		req.PriorityK = *priorityK
	}
	if *auxBatch > 0 {
		req.AuxBatchSize = *auxBatch
	}
	if *evolve {
		req.Evolve = true
	}
	if *evolveRows > 0 {
		req.EvolveRows = *evolveRows
	}
	if *evolveFeedback {
		req.EvolveFeedback = true
	}
	if *workers > 0 {
		req.Workers = *workers
	}
	if *seed != 0 {
		req.Seed = *seed
	}

	client, err := newClient(*storeKind, *dbPath, true)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	start := time.Now()
	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run %s finished in %s\n", summary.RunID, time.Since(start).Round(time.Millisecond))
	fmt.Printf("  benchmark: %s\n", summary.Benchmark)
	fmt.Printf("  best: %s\n", summary.BestExpression)
	fmt.Printf("  reward: %.6f\n", summary.BestReward)
	fmt.Printf("  success: %v\n", summary.Success)
	fmt.Printf("  epochs: %d samples: %s distinct: %s invalid: %s\n",
		summary.Epochs,
		humanize.Comma(int64(summary.NSamples)),
		humanize.Comma(int64(summary.Distinct)),
		humanize.Comma(int64(summary.Invalid)))
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	limit := fs.Int("limit", 20, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("%s  %-10s  seed=%-6d  reward=%.6f  success=%-5v  samples=%s  %s\n",
			r.ID, r.Task, r.Seed, r.BestReward, r.Success,
			humanize.Comma(int64(r.NSamples)), r.CreatedAtUTC)
	}
	return nil
}

func runEpochs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("epochs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	runID := fs.String("run", "", "run id; empty means the latest run")
	limit := fs.Int("limit", 0, "maximum rows; 0 means all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	epochs, err := client.Epochs(ctx, *runID)
	if err != nil {
		return err
	}
	if *limit > 0 && len(epochs) > *limit {
		epochs = epochs[len(epochs)-*limit:]
	}

	for _, e := range epochs {
		line := fmt.Sprintf("epoch=%-5d r_max=%.6f r_best=%.6f baseline=%.6f kept=%-4d distinct=%-6d invalid=%.3f wall=%dms",
			e.Epoch, e.RMax, e.RBest, e.Baseline, e.NFiltered, e.Distinct, e.InvalidRate, e.WallTimeMS)
		if e.NewBest {
			line += "  new-best " + e.BestKey
		}
		fmt.Println(line)
	}
	return nil
}

func runTop(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	runID := fs.String("run", "", "run id; empty means the latest run")
	limit := fs.Int("limit", 10, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	entries, err := client.Top(ctx, *runID, *limit)
	if err != nil {
		return err
	}

	for _, e := range entries {
		origin := "off-policy"
		if e.OnPolicy {
			origin = "on-policy"
		}
		fmt.Printf("%2d. reward=%.6f  %-10s  %s\n", e.Rank, e.Reward, origin, e.Key)
	}
	return nil
}

func runCache(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cache", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	runID := fs.String("run", "", "run id; empty means the latest run")
	limit := fs.Int("limit", 20, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	entries, err := client.CacheSnapshot(ctx, *runID, *limit)
	if err != nil {
		return err
	}

	for _, e := range entries {
		flagStr := ""
		if e.Invalid {
			flagStr = "  invalid"
		}
		fmt.Printf("reward=%.6f  count=%-5d  %s%s\n", e.Reward, e.Count, e.Key, flagStr)
	}
	return nil
}

func runErrors(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("errors", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	runID := fs.String("run", "", "run id; empty means the latest run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	histogram, err := client.Errors(ctx, *runID)
	if err != nil {
		return err
	}

	fmt.Printf("invalid samples: %s\n", humanize.Comma(int64(histogram.Invalid)))
	printHistogram("by kind", histogram.ByKind)
	printHistogram("by node", histogram.ByNode)
	return nil
}

func runBenchmarks(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("benchmarks", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient("memory", "", false)
	if err != nil {
		return err
	}
	for _, name := range client.Benchmarks() {
		fmt.Println(name)
	}
	return nil
}

func printHistogram(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if counts[keys[a]] != counts[keys[b]] {
			return counts[keys[a]] > counts[keys[b]]
		}
		return keys[a] < keys[b]
	})
	fmt.Printf("%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %-16s %s\n", k, humanize.Comma(int64(counts[k])))
	}
}

func newClient(storeKind, dbPath string, withLogger bool) (*searchapi.Client, error) {
	opts := searchapi.Options{StoreKind: storeKind, DBPath: dbPath}
	if withLogger {
		log := newLogger()
		opts.Logger = &log
	}
	return searchapi.New(opts)
}

func newLogger() zerolog.Logger {
	var out = zerolog.New(os.Stderr)
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return out.With().Timestamp().Logger()
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: exprsearchctl <%s> [flags]", msg,
		strings.Join([]string{"init", "run", "runs", "epochs", "top", "cache", "errors", "benchmarks"}, "|"))
}
