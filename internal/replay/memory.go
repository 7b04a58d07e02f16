package replay

import (
	"fmt"

	"exprsearch/internal/expr"
	"exprsearch/internal/policy"
)

// MemoryEntry is one stored candidate with its observed sampling frequency.
type MemoryEntry struct {
	Key    string
	Reward float64
	Count  int
}

// Memory is the bounded replay buffer backing the smoothed reward-quantile
// estimate. Entries are unique by key; once at capacity, the lowest-reward
// entry is evicted to admit a higher-reward one. The total push count keeps
// accumulating even for rejected or evicted candidates, so inclusion
// probabilities sum to at most one over the run's whole sample stream.
type Memory struct {
	capacity    int
	entries     []*MemoryEntry
	byKey       map[string]*MemoryEntry
	totalPushes int
}

func NewMemory(capacity int) (*Memory, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("memory capacity must be > 0")
	}
	return &Memory{
		capacity: capacity,
		byKey:    make(map[string]*MemoryEntry),
	}, nil
}

func (m *Memory) Len() int { return len(m.entries) }

func (m *Memory) Contains(key string) bool {
	_, ok := m.byKey[key]
	return ok
}

// PushBatch offers every candidate of the batch to the buffer. Duplicate
// keys only bump their frequency. Rewards are read from the batch so the
// stored values match what the orchestrator trained on.
func (m *Memory) PushBatch(b Batch, cands []*expr.Candidate) {
	for i, c := range cands {
		reward := c.Reward
		if i < len(b.Rewards) {
			reward = b.Rewards[i]
		}
		m.push(c.Key, reward)
	}
}

func (m *Memory) push(key string, reward float64) {
	m.totalPushes++
	if e, ok := m.byKey[key]; ok {
		e.Count++
		return
	}
	e := &MemoryEntry{Key: key, Reward: reward, Count: 1}
	if len(m.entries) < m.capacity {
		m.entries = append(m.entries, e)
		m.byKey[key] = e
		return
	}
	minIdx := 0
	for i := range m.entries {
		if m.entries[i].Reward < m.entries[minIdx].Reward {
			minIdx = i
		}
	}
	if reward <= m.entries[minIdx].Reward {
		return
	}
	delete(m.byKey, m.entries[minIdx].Key)
	m.entries[minIdx] = e
	m.byKey[key] = e
}

// Rewards returns stored rewards in a fixed order matching ComputeProbs.
func (m *Memory) Rewards() []float64 {
	out := make([]float64, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Reward
	}
	return out
}

// ComputeProbs returns the inclusion-probability weight of each stored
// entry: its frequency over the total number of pushes seen this run.
func (m *Memory) ComputeProbs() []float64 {
	out := make([]float64, len(m.entries))
	if m.totalPushes == 0 {
		return out
	}
	for i, e := range m.entries {
		out[i] = float64(e.Count) / float64(m.totalPushes)
	}
	return out
}

func (m *Memory) TotalPushes() int { return m.totalPushes }

// WeightedQuantile estimates the reward quantile at probability q from the
// stored entries combined with the on-policy samples not already present in
// the buffer. Unique samples evenly split the probability mass the buffer
// does not account for. degenerate reports the zero-unique-samples case, in
// which memory weights are renormalized alone.
func (m *Memory) WeightedQuantile(sampleKeys []string, sampleRewards []float64, q float64) (quantile float64, degenerate bool, err error) {
	if len(sampleKeys) != len(sampleRewards) {
		return 0, false, fmt.Errorf("sample keys/rewards mismatch: %d != %d", len(sampleKeys), len(sampleRewards))
	}
	if len(m.entries) == 0 {
		return 0, false, fmt.Errorf("weighted quantile requires a non-empty memory")
	}

	uniqueRewards := make([]float64, 0, len(sampleRewards))
	seen := make(map[string]struct{}, len(sampleKeys))
	for i, key := range sampleKeys {
		if m.Contains(key) {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		uniqueRewards = append(uniqueRewards, sampleRewards[i])
	}

	memRewards := m.Rewards()
	memWeights := m.ComputeProbs()
	memMass := 0.0
	for _, w := range memWeights {
		memMass += w
	}

	values := append(memRewards, uniqueRewards...)
	var weights []float64
	if len(uniqueRewards) == 0 {
		degenerate = true
		weights = make([]float64, len(memWeights))
		if memMass <= 0 {
			return 0, true, fmt.Errorf("memory weights sum to zero")
		}
		for i, w := range memWeights {
			weights[i] = w / memMass
		}
	} else {
		share := (1 - memMass) / float64(len(uniqueRewards))
		weights = append(append([]float64(nil), memWeights...), make([]float64, len(uniqueRewards))...)
		for i := range uniqueRewards {
			weights[len(memWeights)+i] = share
		}
	}

	quantile, err = policy.WeightedQuantile(values, weights, q)
	return quantile, degenerate, err
}
