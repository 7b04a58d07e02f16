//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"exprsearch/internal/model"

	_ "modernc.org/sqlite"
)

func DefaultStoreKind() string { return "sqlite" }

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at_utc, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at_utc = excluded.created_at_utc,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, run.ID, run.CreatedAtUTC, run.SchemaVersion, run.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (model.RunRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.RunRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	query := `SELECT payload FROM runs ORDER BY created_at_utc DESC, id ASC`
	var rows *sql.Rows
	if limit > 0 {
		rows, err = db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RunRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveEpochStats(ctx context.Context, runID string, epochs []model.EpochRecord) error {
	payload, err := EncodeEpochStats(epochs)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "epoch_stats", runID, payload)
}

func (s *SQLiteStore) GetEpochStats(ctx context.Context, runID string) ([]model.EpochRecord, bool, error) {
	payload, ok, err := s.getPayload(ctx, "epoch_stats", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	epochs, err := DecodeEpochStats(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode epoch stats %s: %w", runID, err)
	}
	return epochs, true, nil
}

func (s *SQLiteStore) SaveHallOfFame(ctx context.Context, runID string, entries []model.HallOfFameEntry) error {
	payload, err := EncodeHallOfFame(entries)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "hall_of_fame", runID, payload)
}

func (s *SQLiteStore) GetHallOfFame(ctx context.Context, runID string) ([]model.HallOfFameEntry, bool, error) {
	payload, ok, err := s.getPayload(ctx, "hall_of_fame", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	entries, err := DecodeHallOfFame(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode hall of fame %s: %w", runID, err)
	}
	return entries, true, nil
}

func (s *SQLiteStore) SaveCacheSnapshot(ctx context.Context, runID string, entries []model.CacheEntry) error {
	payload, err := EncodeCacheSnapshot(entries)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "cache_snapshots", runID, payload)
}

func (s *SQLiteStore) GetCacheSnapshot(ctx context.Context, runID string) ([]model.CacheEntry, bool, error) {
	payload, ok, err := s.getPayload(ctx, "cache_snapshots", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	entries, err := DecodeCacheSnapshot(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode cache snapshot %s: %w", runID, err)
	}
	return entries, true, nil
}

func (s *SQLiteStore) SaveErrorHistogram(ctx context.Context, runID string, histogram model.ErrorHistogram) error {
	payload, err := EncodeErrorHistogram(histogram)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "error_histograms", runID, payload)
}

func (s *SQLiteStore) GetErrorHistogram(ctx context.Context, runID string) (model.ErrorHistogram, bool, error) {
	payload, ok, err := s.getPayload(ctx, "error_histograms", runID)
	if err != nil || !ok {
		return model.ErrorHistogram{}, ok, err
	}
	histogram, err := DecodeErrorHistogram(payload)
	if err != nil {
		return model.ErrorHistogram{}, false, fmt.Errorf("decode error histogram %s: %w", runID, err)
	}
	return histogram, true, nil
}

func (s *SQLiteStore) savePayload(ctx context.Context, table, runID string, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET payload = excluded.payload
	`, table), runID, payload)
	return err
}

func (s *SQLiteStore) getPayload(ctx context.Context, table, runID string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}
	var payload []byte
	err = db.QueryRowContext(ctx, fmt.Sprintf(`SELECT payload FROM %s WHERE run_id = ?`, table), runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at_utc TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS epoch_stats (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS hall_of_fame (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS cache_snapshots (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS error_histograms (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
