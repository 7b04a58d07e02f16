package storage

import (
	"context"

	"exprsearch/internal/model"
)

// Store defines persistence for run results and their statistics.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	SaveEpochStats(ctx context.Context, runID string, epochs []model.EpochRecord) error
	GetEpochStats(ctx context.Context, runID string) ([]model.EpochRecord, bool, error)
	SaveHallOfFame(ctx context.Context, runID string, entries []model.HallOfFameEntry) error
	GetHallOfFame(ctx context.Context, runID string) ([]model.HallOfFameEntry, bool, error)
	SaveCacheSnapshot(ctx context.Context, runID string, entries []model.CacheEntry) error
	GetCacheSnapshot(ctx context.Context, runID string) ([]model.CacheEntry, bool, error)
	SaveErrorHistogram(ctx context.Context, runID string, histogram model.ErrorHistogram) error
	GetErrorHistogram(ctx context.Context, runID string) (model.ErrorHistogram, bool, error)
}
