package stats

import (
	"time"

	"exprsearch/internal/cache"
	"exprsearch/internal/model"
	"exprsearch/internal/policy"
	"exprsearch/internal/replay"
	"exprsearch/internal/storage"
	"exprsearch/internal/train"
)

// RunInfo carries the run identity and configuration echoed into the
// persisted run record.
type RunInfo struct {
	ID        string
	Task      string
	Seed      int64
	BatchSize int
	Epsilon   float64
	Baseline  string
}

func EpochRecordFrom(s train.EpochStats) model.EpochRecord {
	invalid := 0
	for _, bad := range s.Full.Invalid {
		if bad {
			invalid++
		}
	}
	lenSum := 0
	for _, n := range s.Full.Lengths {
		lenSum += n
	}
	rec := model.EpochRecord{
		Epoch:      s.Epoch,
		NSamples:   s.NSamples,
		RMax:       policy.Max(s.Full.Rewards),
		RBest:      s.BestReward,
		Baseline:   s.Baseline,
		NFiltered:  len(s.Filtered.Rewards),
		Distinct:   s.DistinctKeys,
		NewBest:    s.NewBest,
		WallTimeMS: s.WallTime.Milliseconds(),
	}
	if s.RiskSeeking {
		rec.Quantile = s.Quantile
	}
	if n := len(s.Full.Rewards); n > 0 {
		rec.MeanLength = float64(lenSum) / float64(n)
		rec.InvalidRate = float64(invalid) / float64(n)
	}
	if s.NewBest {
		rec.BestKey = s.BestKey
	}
	return rec
}

func RunRecordFrom(info RunInfo, r train.Result) model.RunRecord {
	rec := model.RunRecord{
		ID:             info.ID,
		Task:           info.Task,
		CreatedAtUTC:   time.Now().UTC().Format(time.RFC3339),
		Seed:           info.Seed,
		BatchSize:      info.BatchSize,
		Epsilon:        info.Epsilon,
		Baseline:       info.Baseline,
		Epochs:         r.Epochs,
		NSamples:       r.NSamples,
		BestKey:        r.BestKey,
		BestReward:     r.BestReward,
		BestBaseReward: r.BestBaseReward,
		Success:        r.Success,
		FirstSuccess:   r.FirstSuccess,
		Distinct:       r.DistinctCandidates,
		InvalidCount:   r.ErrorStats.Invalid,
	}
	storage.Stamp(&rec)
	return rec
}

func HallOfFameFrom(entries []replay.PriorityEntry) []model.HallOfFameEntry {
	out := make([]model.HallOfFameEntry, len(entries))
	for i, e := range entries {
		out[i] = model.HallOfFameEntry{
			Rank:     i + 1,
			Key:      e.Key,
			Reward:   e.Reward,
			OnPolicy: e.OnPolicy,
		}
	}
	return out
}

func CacheSnapshotFrom(entries []cache.SnapshotEntry) []model.CacheEntry {
	out := make([]model.CacheEntry, len(entries))
	for i, e := range entries {
		out[i] = model.CacheEntry{
			Key:     e.Key,
			Reward:  e.Reward,
			Count:   e.Count,
			Invalid: e.Invalid,
		}
	}
	return out
}

func ErrorHistogramFrom(es cache.ErrorStats) model.ErrorHistogram {
	return model.ErrorHistogram{
		Invalid: es.Invalid,
		ByKind:  es.ByKind,
		ByNode:  es.ByNode,
	}
}
