package stats

import (
	"github.com/rs/zerolog"

	"exprsearch/internal/policy"
	"exprsearch/internal/train"
)

// Logger is a statistics sink that reports each epoch and the final run
// through a structured log.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) LogEpoch(s train.EpochStats) {
	ev := l.log.Info()
	if s.Degenerate {
		ev = l.log.Warn().Bool("degenerate_quantile", true)
	}

	ev = ev.
		Int("epoch", s.Epoch).
		Int("n_samples", s.NSamples).
		Int("batch", len(s.Full.Rewards)).
		Int("kept", len(s.Filtered.Rewards)).
		Int("distinct", s.DistinctKeys).
		Float64("r_max", policy.Max(s.Full.Rewards)).
		Float64("r_mean", policy.Mean(s.Full.Rewards)).
		Float64("baseline", s.Baseline).
		Dur("wall", s.WallTime)

	if s.RiskSeeking {
		ev = ev.Float64("quantile", s.Quantile)
	}
	if s.EWMASet {
		ev = ev.Float64("ewma", s.EWMA)
	}
	if s.NewBest {
		ev = ev.Float64("r_best", s.BestReward).Str("best", s.BestKey)
	}
	for k, v := range s.Summary {
		ev = ev.Float64(k, v)
	}

	ev.Msg("epoch complete")
}

func (l *Logger) LogRun(r train.Result) {
	l.log.Info().
		Int("epochs", r.Epochs).
		Int("n_samples", r.NSamples).
		Int("distinct", r.DistinctCandidates).
		Int("invalid", r.ErrorStats.Invalid).
		Float64("r_best", r.BestReward).
		Bool("success", r.Success).
		Str("best", r.BestKey).
		Msg("run complete")
}

var _ train.StatsSink = (*Logger)(nil)
