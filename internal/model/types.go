package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord summarizes one finished training run.
type RunRecord struct {
	VersionedRecord
	ID             string  `json:"id"`
	Task           string  `json:"task"`
	CreatedAtUTC   string  `json:"created_at_utc"`
	Seed           int64   `json:"seed"`
	BatchSize      int     `json:"batch_size"`
	Epsilon        float64 `json:"epsilon"`
	Baseline       string  `json:"baseline"`
	Epochs         int     `json:"epochs"`
	NSamples       int     `json:"n_samples"`
	BestKey        string  `json:"best_key"`
	BestReward     float64 `json:"best_reward"`
	BestBaseReward float64 `json:"best_base_reward,omitempty"`
	Success        bool    `json:"success"`
	FirstSuccess   bool    `json:"first_success"`
	Distinct       int     `json:"distinct_candidates"`
	InvalidCount   int     `json:"invalid_count"`
}

// EpochRecord is the persisted per-epoch statistics row.
type EpochRecord struct {
	Epoch       int     `json:"epoch"`
	NSamples    int     `json:"n_samples"`
	RMax        float64 `json:"r_max"`
	RBest       float64 `json:"r_best"`
	Quantile    float64 `json:"quantile"`
	Baseline    float64 `json:"baseline"`
	MeanLength  float64 `json:"mean_length"`
	InvalidRate float64 `json:"invalid_rate"`
	NFiltered   int     `json:"n_filtered"`
	Distinct    int     `json:"distinct_keys"`
	NewBest     bool    `json:"new_best,omitempty"`
	BestKey     string  `json:"best_key,omitempty"`
	WallTimeMS  int64   `json:"wall_time_ms"`
}

// HallOfFameEntry is one priority-buffer entry persisted at end of run.
type HallOfFameEntry struct {
	Rank     int     `json:"rank"`
	Key      string  `json:"key"`
	Reward   float64 `json:"reward"`
	OnPolicy bool    `json:"on_policy"`
}

// CacheEntry is one row of the deduplicated-candidate snapshot.
type CacheEntry struct {
	Key     string  `json:"key"`
	Reward  float64 `json:"reward"`
	Count   int     `json:"count"`
	Invalid bool    `json:"invalid,omitempty"`
}

// ErrorHistogram aggregates the invalid-candidate taxonomy, weighted by how
// often each invalid candidate was re-sampled.
type ErrorHistogram struct {
	Invalid int            `json:"invalid"`
	ByKind  map[string]int `json:"by_kind,omitempty"`
	ByNode  map[string]int `json:"by_node,omitempty"`
}
