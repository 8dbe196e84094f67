package store

import (
	"context"
	"sync"

	"prayerbridge/internal/settings"
)

// MemoryStore is a concurrency-safe in-memory Store, used in tests and as a
// fallback when no database path is configured.
type MemoryStore struct {
	mu sync.RWMutex

	settings    settings.Settings
	hasSettings bool

	location    LocationRecord
	hasLocation bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveSettings(_ context.Context, set settings.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = set
	s.hasSettings = true
	return nil
}

func (s *MemoryStore) LoadSettings(_ context.Context) (settings.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasSettings {
		return settings.Settings{}, ErrNotFound
	}
	return s.settings, nil
}

func (s *MemoryStore) SaveLocation(_ context.Context, rec LocationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = rec
	s.hasLocation = true
	return nil
}

func (s *MemoryStore) LoadLocation(_ context.Context) (LocationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasLocation {
		return LocationRecord{}, ErrNotFound
	}
	return s.location, nil
}

func (s *MemoryStore) ClearLocation(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = LocationRecord{}
	s.hasLocation = false
	return nil
}
