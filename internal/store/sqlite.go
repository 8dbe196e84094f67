package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"prayerbridge/internal/settings"
)

// EnsureSchema creates tables if they don't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS settings (
  id INTEGER PRIMARY KEY CHECK(id = 1),
  data TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS location_cache (
  id INTEGER PRIMARY KEY CHECK(id = 1),
  latitude REAL NOT NULL,
  longitude REAL NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  cached_at INTEGER NOT NULL
);
`
	_, err := db.Exec(schema)
	return err
}

// SQLiteStore persists settings and the location cache in a local SQLite
// database, replacing the original app's localStorage.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, set settings.Settings) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO settings (id, data, updated_at) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadSettings(ctx context.Context) (settings.Settings, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Settings{}, ErrNotFound
	}
	if err != nil {
		return settings.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	// Merge over defaults so settings added after the row was written keep
	// their default values.
	merged := settings.Defaults()
	if err := json.Unmarshal([]byte(data), &merged); err != nil {
		return settings.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return merged, nil
}

func (s *SQLiteStore) SaveLocation(ctx context.Context, rec LocationRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO location_cache (id, latitude, longitude, name, cached_at) VALUES (1, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  latitude = excluded.latitude,
  longitude = excluded.longitude,
  name = excluded.name,
  cached_at = excluded.cached_at`,
		rec.Latitude, rec.Longitude, rec.Name, rec.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("save location: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadLocation(ctx context.Context) (LocationRecord, error) {
	var rec LocationRecord
	var cachedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, name, cached_at FROM location_cache WHERE id = 1`).
		Scan(&rec.Latitude, &rec.Longitude, &rec.Name, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return LocationRecord{}, ErrNotFound
	}
	if err != nil {
		return LocationRecord{}, fmt.Errorf("load location: %w", err)
	}
	rec.Timestamp = time.Unix(cachedAt, 0)
	return rec, nil
}

func (s *SQLiteStore) ClearLocation(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM location_cache WHERE id = 1`); err != nil {
		return fmt.Errorf("clear location: %w", err)
	}
	return nil
}
