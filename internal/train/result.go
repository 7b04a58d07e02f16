package train

import (
	"exprsearch/internal/cache"
	"exprsearch/internal/expr"
	"exprsearch/internal/replay"
)

// Result describes the best candidate found and the aggregate run
// statistics. When a success was flagged during an eval-all run, that
// candidate takes priority over the best-by-reward one.
type Result struct {
	Best           *expr.Candidate
	BestKey        string
	BestReward     float64
	BestBaseReward float64
	Metrics        expr.Metrics
	Success        bool
	// FirstSuccess reports whether Best came from the exhaustive-evaluation
	// success path rather than reward ranking.
	FirstSuccess bool

	Epochs    int
	NSamples  int
	RBest     float64
	BaseRBest float64

	DistinctCandidates int
	ErrorStats         cache.ErrorStats
	CacheSnapshot      []cache.SnapshotEntry
	HallOfFame         []replay.PriorityEntry
}
