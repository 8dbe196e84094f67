package store

import (
	"context"
	"errors"
	"time"

	"prayerbridge/internal/settings"
)

var (
	// ErrNotFound is returned when the requested record has never been saved.
	ErrNotFound = errors.New("record not found")
)

// LocationRecord is the persisted location cache entry. The source is not
// stored: anything loaded from here is by definition a cache hit.
type LocationRecord struct {
	Latitude  float64
	Longitude float64
	Name      string
	Timestamp time.Time
}

// Age returns how old the record is relative to now.
func (r LocationRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.Timestamp)
}

// Store is the contract for persisting user settings and the last known
// location across restarts.
type Store interface {
	SaveSettings(ctx context.Context, s settings.Settings) error
	// LoadSettings returns ErrNotFound when nothing was ever saved.
	LoadSettings(ctx context.Context) (settings.Settings, error)

	SaveLocation(ctx context.Context, rec LocationRecord) error
	// LoadLocation returns ErrNotFound when no location is cached.
	LoadLocation(ctx context.Context) (LocationRecord, error)
	ClearLocation(ctx context.Context) error
}
