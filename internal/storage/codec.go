package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"exprsearch/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeEpochStats(epochs []model.EpochRecord) ([]byte, error) {
	return json.Marshal(epochs)
}

func DecodeEpochStats(data []byte) ([]model.EpochRecord, error) {
	var epochs []model.EpochRecord
	if err := json.Unmarshal(data, &epochs); err != nil {
		return nil, err
	}
	return epochs, nil
}

func EncodeHallOfFame(entries []model.HallOfFameEntry) ([]byte, error) {
	return json.Marshal(entries)
}

func DecodeHallOfFame(data []byte) ([]model.HallOfFameEntry, error) {
	var entries []model.HallOfFameEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func EncodeCacheSnapshot(entries []model.CacheEntry) ([]byte, error) {
	return json.Marshal(entries)
}

func DecodeCacheSnapshot(data []byte) ([]model.CacheEntry, error) {
	var entries []model.CacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func EncodeErrorHistogram(h model.ErrorHistogram) ([]byte, error) {
	return json.Marshal(h)
}

func DecodeErrorHistogram(data []byte) (model.ErrorHistogram, error) {
	var h model.ErrorHistogram
	if err := json.Unmarshal(data, &h); err != nil {
		return model.ErrorHistogram{}, err
	}
	return h, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}

// Stamp fills in the current schema and codec versions.
func Stamp(run *model.RunRecord) {
	run.SchemaVersion = CurrentSchemaVersion
	run.CodecVersion = CurrentCodecVersion
}
