package stats

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"exprsearch/internal/cache"
	"exprsearch/internal/replay"
	"exprsearch/internal/storage"
	"exprsearch/internal/train"
)

func sampleEpochStats() train.EpochStats {
	return train.EpochStats{
		Epoch:    3,
		NSamples: 400,
		Full: train.MetricVectors{
			Rewards: []float64{0.1, 0.9, 0.4, 0.7},
			Lengths: []int{1, 2, 2, 3},
			Invalid: []bool{true, false, false, false},
		},
		Filtered: train.MetricVectors{
			Rewards: []float64{0.9, 0.7},
		},
		RiskSeeking:  true,
		Quantile:     0.7,
		Baseline:     0.7,
		DistinctKeys: 4,
		NewBest:      true,
		BestReward:   0.9,
		BestKey:      "sin,x1",
		WallTime:     250 * time.Millisecond,
	}
}

func TestEpochRecordFrom(t *testing.T) {
	rec := EpochRecordFrom(sampleEpochStats())

	if rec.Epoch != 3 || rec.NSamples != 400 {
		t.Fatalf("identity fields: %+v", rec)
	}
	if rec.RMax != 0.9 || rec.Quantile != 0.7 {
		t.Fatalf("reward fields: %+v", rec)
	}
	if rec.MeanLength != 2.0 {
		t.Fatalf("mean length = %v, want 2.0", rec.MeanLength)
	}
	if rec.InvalidRate != 0.25 {
		t.Fatalf("invalid rate = %v, want 0.25", rec.InvalidRate)
	}
	if rec.NFiltered != 2 || !rec.NewBest || rec.BestKey != "sin,x1" {
		t.Fatalf("filter fields: %+v", rec)
	}
	if rec.WallTimeMS != 250 {
		t.Fatalf("wall time = %dms", rec.WallTimeMS)
	}
}

func TestEpochRecordOmitsQuantileWithoutRiskSeeking(t *testing.T) {
	s := sampleEpochStats()
	s.RiskSeeking = false
	rec := EpochRecordFrom(s)
	if rec.Quantile != 0 {
		t.Fatalf("quantile = %v, want 0", rec.Quantile)
	}
}

func TestRunRecordFromStampsVersions(t *testing.T) {
	info := RunInfo{ID: "run-1", Task: "nguyen4", BatchSize: 100, Epsilon: 0.05, Baseline: "R_e"}
	result := train.Result{
		BestKey:            "mul,x1,x1",
		BestReward:         0.93,
		Epochs:             12,
		NSamples:           1200,
		DistinctCandidates: 800,
		Success:            true,
	}
	rec := RunRecordFrom(info, result)
	if rec.ID != "run-1" || rec.Task != "nguyen4" || rec.BestKey != "mul,x1,x1" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.SchemaVersion != storage.CurrentSchemaVersion {
		t.Fatalf("schema version = %d", rec.SchemaVersion)
	}
	if rec.CreatedAtUTC == "" {
		t.Fatal("missing creation timestamp")
	}
}

func TestArtifactConversions(t *testing.T) {
	hof := HallOfFameFrom([]replay.PriorityEntry{
		{Key: "sin,x1", Reward: 0.9, OnPolicy: true},
		{Key: "add,x1,x1", Reward: 0.7},
	})
	if len(hof) != 2 || hof[0].Rank != 1 || hof[1].Rank != 2 {
		t.Fatalf("hall of fame = %+v", hof)
	}

	snap := CacheSnapshotFrom([]cache.SnapshotEntry{{Key: "x1", Reward: 0.1, Count: 5, Invalid: true}})
	if len(snap) != 1 || snap[0].Count != 5 || !snap[0].Invalid {
		t.Fatalf("cache snapshot = %+v", snap)
	}

	hist := ErrorHistogramFrom(cache.ErrorStats{Invalid: 3, ByKind: map[string]int{"nan": 3}})
	if hist.Invalid != 3 || hist.ByKind["nan"] != 3 {
		t.Fatalf("histogram = %+v", hist)
	}
}

func TestRecorderPersistsRunArtifacts(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	rec := NewRecorder(RunInfo{ID: "run-1", Task: "nguyen1"}, store, zerolog.Nop())
	rec.LogEpoch(sampleEpochStats())
	rec.LogRun(train.Result{
		BestKey:    "sin,x1",
		BestReward: 0.9,
		HallOfFame: []replay.PriorityEntry{{Key: "sin,x1", Reward: 0.9}},
		CacheSnapshot: []cache.SnapshotEntry{
			{Key: "sin,x1", Reward: 0.9, Count: 1},
		},
		ErrorStats: cache.ErrorStats{Invalid: 1, ByKind: map[string]int{"domain": 1}},
	})

	run, ok, err := store.GetRun(ctx, "run-1")
	if err != nil || !ok || run.BestKey != "sin,x1" {
		t.Fatalf("run: %+v ok=%v err=%v", run, ok, err)
	}
	epochs, ok, err := store.GetEpochStats(ctx, "run-1")
	if err != nil || !ok || len(epochs) != 1 {
		t.Fatalf("epochs: %+v ok=%v err=%v", epochs, ok, err)
	}
	hof, ok, err := store.GetHallOfFame(ctx, "run-1")
	if err != nil || !ok || len(hof) != 1 {
		t.Fatalf("hof: %+v ok=%v err=%v", hof, ok, err)
	}
	hist, ok, err := store.GetErrorHistogram(ctx, "run-1")
	if err != nil || !ok || hist.ByKind["domain"] != 1 {
		t.Fatalf("histogram: %+v ok=%v err=%v", hist, ok, err)
	}
}
