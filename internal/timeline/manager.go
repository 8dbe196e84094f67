package timeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"prayerbridge/internal/prayer"
)

// Options control one sync pass.
type Options struct {
	// Enabled mirrors the timeline feature flag. When false every sync is a
	// no-op that still completes, so callers never branch on the flag.
	Enabled bool
	// ReminderMinutes is the reminder lead time; zero or negative disables
	// reminders.
	ReminderMinutes int
	Use24Hour       bool
}

// Manager performs idempotent day-pin synchronization against a remote pin
// store.
type Manager struct {
	store PinStore
}

func NewManager(store PinStore) *Manager {
	return &Manager{store: store}
}

// SyncDay upserts one pin per ritual prayer of the day (Sunrise excluded),
// all requests in flight together. It returns only after every upsert has
// completed; a single pin's failure is logged and never aborts its siblings.
func (m *Manager) SyncDay(ctx context.Context, day prayer.Day, opts Options) {
	if !opts.Enabled {
		log.Debug().Msg("timeline disabled, skipping pins")
		return
	}

	var wg sync.WaitGroup
	for _, ev := range prayer.RitualEvents() {
		pin := NewPrayerPin(ev, day.At(ev), opts.ReminderMinutes, opts.Use24Hour)

		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := m.store.UpsertPin(ctx, pin); err != nil {
				// Log and continue; sibling pins still go through.
				log.Warn().Err(err).Str("pin", pin.ID).Msg("pin upsert failed")
				return
			}
			log.Debug().Str("pin", pin.ID).Msg("pin upserted")
		}()
	}
	wg.Wait()
}

// RefreshDays syncs today's pins and then tomorrow's.
func (m *Manager) RefreshDays(ctx context.Context, today, tomorrow prayer.Day, opts Options) {
	m.SyncDay(ctx, today, opts)
	m.SyncDay(ctx, tomorrow, opts)
}

// RetireDays deletes the ritual-prayer pins of the given days. Used when the
// timeline feature is switched off to clear what was already published.
func (m *Manager) RetireDays(ctx context.Context, days ...prayer.Day) {
	var wg sync.WaitGroup
	for _, day := range days {
		for _, ev := range prayer.RitualEvents() {
			id := PinID(ev, day.At(ev))

			wg.Add(1)
			go func() {
				defer wg.Done()

				if err := m.store.DeletePin(ctx, id); err != nil {
					log.Warn().Err(err).Str("pin", id).Msg("pin delete failed")
				}
			}()
		}
	}
	wg.Wait()
}
