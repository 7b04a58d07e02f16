package stats

import (
	"context"

	"github.com/rs/zerolog"

	"exprsearch/internal/model"
	"exprsearch/internal/storage"
	"exprsearch/internal/train"
)

// Recorder is a statistics sink that persists epoch rows and the final run
// artifacts through a store. Persistence failures are logged and swallowed;
// a broken store must not abort a training run.
type Recorder struct {
	info   RunInfo
	store  storage.Store
	log    zerolog.Logger
	epochs []model.EpochRecord
}

func NewRecorder(info RunInfo, store storage.Store, log zerolog.Logger) *Recorder {
	return &Recorder{info: info, store: store, log: log}
}

func (r *Recorder) LogEpoch(s train.EpochStats) {
	r.epochs = append(r.epochs, EpochRecordFrom(s))
}

func (r *Recorder) LogRun(result train.Result) {
	ctx := context.Background()

	if err := r.store.SaveRun(ctx, RunRecordFrom(r.info, result)); err != nil {
		r.log.Error().Err(err).Str("run_id", r.info.ID).Msg("persist run record")
		return
	}
	if err := r.store.SaveEpochStats(ctx, r.info.ID, r.epochs); err != nil {
		r.log.Error().Err(err).Str("run_id", r.info.ID).Msg("persist epoch stats")
	}
	if err := r.store.SaveHallOfFame(ctx, r.info.ID, HallOfFameFrom(result.HallOfFame)); err != nil {
		r.log.Error().Err(err).Str("run_id", r.info.ID).Msg("persist hall of fame")
	}
	if err := r.store.SaveCacheSnapshot(ctx, r.info.ID, CacheSnapshotFrom(result.CacheSnapshot)); err != nil {
		r.log.Error().Err(err).Str("run_id", r.info.ID).Msg("persist cache snapshot")
	}
	if err := r.store.SaveErrorHistogram(ctx, r.info.ID, ErrorHistogramFrom(result.ErrorStats)); err != nil {
		r.log.Error().Err(err).Str("run_id", r.info.ID).Msg("persist error histogram")
	}
}

var _ train.StatsSink = (*Recorder)(nil)

// Multi fans epoch and run statistics out to several sinks.
type Multi []train.StatsSink

func (m Multi) LogEpoch(s train.EpochStats) {
	for _, sink := range m {
		sink.LogEpoch(s)
	}
}

func (m Multi) LogRun(r train.Result) {
	for _, sink := range m {
		sink.LogRun(r)
	}
}

var _ train.StatsSink = Multi(nil)
