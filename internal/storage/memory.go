package storage

import (
	"context"
	"sort"
	"sync"

	"exprsearch/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	epochs      map[string][]model.EpochRecord
	hof         map[string][]model.HallOfFameEntry
	caches      map[string][]model.CacheEntry
	errFreqs    map[string]model.ErrorHistogram
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.epochs = make(map[string][]model.EpochRecord)
	s.hof = make(map[string][]model.HallOfFameEntry)
	s.caches = make(map[string][]model.CacheEntry)
	s.errFreqs = make(map[string]model.ErrorHistogram)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUTC == out[j].CreatedAtUTC {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SaveEpochStats(_ context.Context, runID string, epochs []model.EpochRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epochs[runID] = append([]model.EpochRecord(nil), epochs...)
	return nil
}

func (s *MemoryStore) GetEpochStats(_ context.Context, runID string) ([]model.EpochRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	epochs, ok := s.epochs[runID]
	return epochs, ok, nil
}

func (s *MemoryStore) SaveHallOfFame(_ context.Context, runID string, entries []model.HallOfFameEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hof[runID] = append([]model.HallOfFameEntry(nil), entries...)
	return nil
}

func (s *MemoryStore) GetHallOfFame(_ context.Context, runID string) ([]model.HallOfFameEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.hof[runID]
	return entries, ok, nil
}

func (s *MemoryStore) SaveCacheSnapshot(_ context.Context, runID string, entries []model.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.caches[runID] = append([]model.CacheEntry(nil), entries...)
	return nil
}

func (s *MemoryStore) GetCacheSnapshot(_ context.Context, runID string) ([]model.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.caches[runID]
	return entries, ok, nil
}

func (s *MemoryStore) SaveErrorHistogram(_ context.Context, runID string, histogram model.ErrorHistogram) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errFreqs[runID] = histogram
	return nil
}

func (s *MemoryStore) GetErrorHistogram(_ context.Context, runID string) (model.ErrorHistogram, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	histogram, ok := s.errFreqs[runID]
	return histogram, ok, nil
}
