package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"prayerbridge/internal/location"
	"prayerbridge/internal/prayer"
	"prayerbridge/internal/settings"
	"prayerbridge/internal/store"
	"prayerbridge/internal/timeline"
	"prayerbridge/internal/watch"
)

const (
	maxDeliveryRetries = 3
	baseRetryDelay     = 2000 * time.Millisecond
)

// Resolver yields one or two locations per cycle on a channel it closes.
type Resolver interface {
	Resolve(ctx context.Context, cfg settings.Settings) <-chan location.Result
	ClearCache(ctx context.Context)
}

// PinSyncer is the timeline surface the orchestrator fans work out to.
type PinSyncer interface {
	RefreshDays(ctx context.Context, today, tomorrow prayer.Day, opts timeline.Options)
	RetireDays(ctx context.Context, days ...prayer.Day)
}

// Orchestrator drives one sync cycle end to end: resolve a location, compute
// the day's prayer times, deliver them to the watch with retry, and hand the
// day pair to the timeline. All mutable cycle state lives on the instance;
// a monotonically increasing generation marks in-flight work as stale the
// moment a newer cycle starts.
type Orchestrator struct {
	store     store.Store
	resolver  Resolver
	engine    *prayer.Engine
	transport watch.Transport
	pins      PinSyncer

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool

	generation atomic.Uint64

	mu       sync.Mutex
	lastDays []prayer.Day
}

func NewOrchestrator(st store.Store, resolver Resolver, engine *prayer.Engine, transport watch.Transport, pins PinSyncer) *Orchestrator {
	return &Orchestrator{
		store:     st,
		resolver:  resolver,
		engine:    engine,
		transport: transport,
		pins:      pins,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Refresh runs one full sync cycle. It is the single entry point for
// app-ready, watch-initiated refresh requests, scheduled refreshes, and the
// tail of a settings change. Starting a cycle invalidates any still-running
// older one; stale completions are discarded, never delivered.
func (o *Orchestrator) Refresh(ctx context.Context) {
	gen := o.generation.Add(1)
	cycle := uuid.NewString()

	log.Info().Str("cycle", cycle).Msg("sync cycle started")

	cfg, fromDefaults := o.loadSettings(ctx)

	for res := range o.resolver.Resolve(ctx, cfg) {
		if o.stale(gen) {
			log.Debug().Str("cycle", cycle).Msg("discarding stale location result")
			return
		}

		if res.Err != nil {
			log.Error().Str("cycle", cycle).Err(res.Err).Msg("location resolution failed")
			o.sendError(ctx, gen, watch.ErrorLocation, "Location unavailable")
			return
		}

		o.computeAndDeliver(ctx, gen, cycle, res.Location, cfg, fromDefaults)
	}

	log.Debug().Str("cycle", cycle).Msg("sync cycle finished")
}

// ApplySettings validates and persists updated settings, clears the location
// cache when the manual-location choice changed, retires published pins when
// the timeline was switched off, and re-enters a fresh cycle.
func (o *Orchestrator) ApplySettings(ctx context.Context, updated settings.Settings) error {
	if err := updated.Validate(); err != nil {
		return err
	}

	prev, _ := o.loadSettings(ctx)

	if err := o.store.SaveSettings(ctx, updated); err != nil {
		return err
	}

	if manualLocationChanged(prev, updated) {
		log.Info().Msg("manual location changed, clearing location cache")
		o.resolver.ClearCache(ctx)
	}

	if prev.TimelineEnabled && !updated.TimelineEnabled {
		if days := o.publishedDays(); len(days) > 0 {
			log.Info().Msg("timeline disabled, retiring published pins")
			o.pins.RetireDays(ctx, days...)
		}
	}

	// The fresh cycle runs in the background so a settings save never
	// blocks on GPS acquisition or delivery retries.
	go o.Refresh(context.WithoutCancel(ctx))
	return nil
}

func manualLocationChanged(prev, next settings.Settings) bool {
	return prev.ManualLocation != next.ManualLocation ||
		prev.ManualLatitude != next.ManualLatitude ||
		prev.ManualLongitude != next.ManualLongitude
}

// loadSettings returns the persisted settings, or the defaults when nothing
// was ever saved. The second return reports the defaults case, in which the
// location's regional method suggestion is still allowed to apply.
func (o *Orchestrator) loadSettings(ctx context.Context) (settings.Settings, bool) {
	cfg, err := o.store.LoadSettings(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Msg("failed to load settings, using defaults")
		}
		return settings.Defaults(), true
	}
	return cfg, false
}

func (o *Orchestrator) stale(gen uint64) bool {
	return o.generation.Load() != gen
}

func (o *Orchestrator) computeAndDeliver(ctx context.Context, gen uint64, cycle string, loc location.ResolvedLocation, cfg settings.Settings, fromDefaults bool) {
	now := o.now()

	calcCfg := cfg.CalcConfig()
	if fromDefaults && loc.SuggestedMethod != "" {
		// Until the user saves an explicit choice, the regional suggestion
		// picks the calculation method.
		calcCfg.Method = loc.SuggestedMethod
	}

	log.Info().
		Str("cycle", cycle).
		Float64("lat", loc.Latitude).
		Float64("lon", loc.Longitude).
		Str("source", string(loc.Source)).
		Str("method", string(calcCfg.Method)).
		Msg("computing prayer times")

	today, err := o.engine.ComputeDay(loc.Coordinates, now, calcCfg)
	if err != nil {
		log.Error().Str("cycle", cycle).Err(err).Msg("prayer computation failed")
		o.sendError(ctx, gen, watch.ErrorCalculation, "Calculation failed")
		return
	}

	tomorrow, err := o.engine.ComputeDay(loc.Coordinates, now.AddDate(0, 0, 1), calcCfg)
	if err != nil {
		log.Error().Str("cycle", cycle).Err(err).Msg("prayer computation failed for tomorrow")
		o.sendError(ctx, gen, watch.ErrorCalculation, "Calculation failed")
		return
	}

	next := prayer.NextEvent(today, now)
	if next.Tomorrow {
		next = prayer.ResolveTomorrow(tomorrow, now)
	}

	if o.stale(gen) {
		log.Debug().Str("cycle", cycle).Msg("discarding stale computation")
		return
	}

	o.deliverWithRetry(ctx, gen, cycle, watch.NewDataPayload(today, next, loc.Name))

	// Timeline sync never blocks or rolls back the watch push.
	o.rememberDays(today, tomorrow)
	go o.pins.RefreshDays(ctx, today, tomorrow, timeline.Options{
		Enabled:         cfg.TimelineEnabled,
		ReminderMinutes: cfg.ReminderMinutes,
	})
}

// deliverWithRetry pushes one payload to the watch. Transport failures back
// off at 2s, 4s, 8s before retrying; exhausting the retries reports an
// application-layer error to the watch instead. A success at any attempt
// ends the sequence, so the retry counter is implicitly zero for the next
// delivery.
func (o *Orchestrator) deliverWithRetry(ctx context.Context, gen uint64, cycle string, p watch.Payload) {
	for attempt := 0; ; attempt++ {
		if o.stale(gen) {
			log.Debug().Str("cycle", cycle).Msg("discarding stale delivery")
			return
		}

		err := o.transport.Send(ctx, p)
		if err == nil {
			log.Info().Str("cycle", cycle).Int("attempt", attempt+1).Msg("watch delivery succeeded")
			return
		}

		if attempt >= maxDeliveryRetries {
			log.Error().Str("cycle", cycle).Err(err).Msg("watch delivery retries exhausted")
			o.sendError(ctx, gen, watch.ErrorAppMessage, "Failed to send data to watch")
			return
		}

		delay := baseRetryDelay << attempt
		log.Warn().
			Str("cycle", cycle).
			Err(err).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("watch delivery failed, retrying")

		if !o.sleep(ctx, delay) {
			return
		}
	}
}

// sendError delivers an error report once, best-effort.
func (o *Orchestrator) sendError(ctx context.Context, gen uint64, code watch.ErrorCode, message string) {
	if o.stale(gen) {
		return
	}
	if err := o.transport.Send(ctx, watch.NewErrorPayload(code, message)); err != nil {
		log.Error().Err(err).Int("code", int(code)).Msg("failed to deliver error report")
	}
}

func (o *Orchestrator) rememberDays(days ...prayer.Day) {
	o.mu.Lock()
	o.lastDays = days
	o.mu.Unlock()
}

func (o *Orchestrator) publishedDays() []prayer.Day {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastDays
}
