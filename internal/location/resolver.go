package location

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"prayerbridge/internal/prayer"
	"prayerbridge/internal/settings"
	"prayerbridge/internal/store"
)

const (
	// UnknownName is the degraded display name when geocoding fails.
	UnknownName = "Unknown"

	// MoveThresholdDeg is the per-axis movement threshold below which a new
	// fix is considered the same place (~1 km at mid latitudes). Compared
	// independently on latitude and longitude, not as a distance; kept that
	// way for compatibility with the original behavior even though it is
	// inaccurate at high latitudes.
	MoveThresholdDeg = 0.01

	// persistTTL bounds how old a persisted cache entry may be to count as
	// a usable first answer.
	persistTTL = 24 * time.Hour

	memCacheKey = "last-location"
)

// Resolver owns the location acquisition policy: manual override, cache-first
// fast answer, fresh GPS with movement suppression, best-effort geocoding.
// Caches are explicit fields with the resolver as single writer.
type Resolver struct {
	mem      *gocache.Cache
	store    store.Store
	gps      FixProvider
	geocoder ReverseGeocoder
	fixOpts  FixOptions
}

func NewResolver(st store.Store, gps FixProvider, geocoder ReverseGeocoder, fixOpts FixOptions) *Resolver {
	return &Resolver{
		mem:      gocache.New(persistTTL, 10*time.Minute),
		store:    st,
		gps:      gps,
		geocoder: geocoder,
		fixOpts:  fixOpts,
	}
}

// Resolve answers with one or two locations on the returned channel, then
// closes it. A cached answer may arrive first for a fast initial display; a
// fresh GPS answer follows only when the device moved beyond the per-axis
// threshold. Consumers must tolerate two results per logical cycle. A Result
// with Err set is terminal and only happens when no cache exists at all.
func (r *Resolver) Resolve(ctx context.Context, cfg settings.Settings) <-chan Result {
	out := make(chan Result, 2)

	// Manual override short-circuits everything: no GPS, no network.
	if cfg.HasManualCoordinates() {
		out <- Result{Location: ResolvedLocation{
			Coordinates: prayer.Coordinates{
				Latitude:  cfg.ManualLatitude,
				Longitude: cfg.ManualLongitude,
			},
			Name:            "Manual Location",
			Source:          SourceManual,
			SuggestedMethod: SuggestMethod(prayer.Coordinates{Latitude: cfg.ManualLatitude, Longitude: cfg.ManualLongitude}),
			Timestamp:       time.Now(),
		}}
		close(out)
		return out
	}

	cached := r.cached(ctx)
	if cached != nil {
		out <- Result{Location: *cached}
	}

	go func() {
		defer close(out)

		fix, err := r.gps.CurrentFix(ctx, r.fixOpts)
		if err != nil {
			if cached != nil {
				// The cache already satisfied the request; a GPS miss is
				// not an error the caller needs to see.
				log.Debug().Err(err).Msg("gps fix failed, cached answer stands")
				return
			}
			// Last resort: an expired persistent entry beats no answer
			// at all.
			if stale := r.staleCached(ctx); stale != nil {
				log.Warn().Err(err).Msg("gps fix failed, answering from expired cache")
				out <- Result{Location: *stale}
				return
			}
			out <- Result{Err: fmt.Errorf("%w: %v", ErrNoFix, err)}
			return
		}

		coords := prayer.Coordinates{Latitude: fix.Latitude, Longitude: fix.Longitude}
		fresh := ResolvedLocation{
			Coordinates:     coords,
			Source:          SourceGPS,
			SuggestedMethod: SuggestMethod(coords),
			Timestamp:       time.Now(),
		}

		if cached != nil && withinThreshold(coords, cached.Coordinates) {
			// Same place: reuse the cached name, refresh the caches, and
			// suppress the second emission.
			fresh.Name = cached.Name
			r.saveCaches(ctx, fresh)
			log.Debug().
				Float64("lat", coords.Latitude).
				Float64("lon", coords.Longitude).
				Msg("location unchanged, skipping update")
			return
		}

		fresh.Name = r.locateName(ctx, coords)
		r.saveCaches(ctx, fresh)

		select {
		case out <- Result{Location: fresh}:
		case <-ctx.Done():
		}
	}()

	return out
}

// ClearCache drops both the in-memory and the persistent location cache.
// Called when the manual-location setting changes.
func (r *Resolver) ClearCache(ctx context.Context) {
	r.mem.Flush()
	if err := r.store.ClearLocation(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to clear persistent location cache")
	}
}

// cached returns the best available cached location: in-memory first, then
// the persistent store if younger than 24h. Store errors degrade to a nil
// cache, never surface.
func (r *Resolver) cached(ctx context.Context) *ResolvedLocation {
	if v, ok := r.mem.Get(memCacheKey); ok {
		loc := v.(ResolvedLocation)
		loc.Source = SourceCache
		return &loc
	}

	rec, err := r.store.LoadLocation(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Msg("failed to load persistent location cache")
		}
		return nil
	}
	if rec.Age(time.Now()) >= persistTTL {
		return nil
	}

	coords := prayer.Coordinates{Latitude: rec.Latitude, Longitude: rec.Longitude}
	loc := ResolvedLocation{
		Coordinates:     coords,
		Name:            rec.Name,
		Source:          SourceCache,
		SuggestedMethod: SuggestMethod(coords),
		Timestamp:       rec.Timestamp,
	}
	r.mem.Set(memCacheKey, loc, gocache.DefaultExpiration)
	return &loc
}

// staleCached returns the persisted location regardless of age. Only used
// once GPS has already failed and no fresh cache exists.
func (r *Resolver) staleCached(ctx context.Context) *ResolvedLocation {
	rec, err := r.store.LoadLocation(ctx)
	if err != nil {
		return nil
	}
	coords := prayer.Coordinates{Latitude: rec.Latitude, Longitude: rec.Longitude}
	return &ResolvedLocation{
		Coordinates:     coords,
		Name:            rec.Name,
		Source:          SourceCache,
		SuggestedMethod: SuggestMethod(coords),
		Timestamp:       rec.Timestamp,
	}
}

func (r *Resolver) saveCaches(ctx context.Context, loc ResolvedLocation) {
	r.mem.Set(memCacheKey, loc, gocache.DefaultExpiration)
	err := r.store.SaveLocation(ctx, store.LocationRecord{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Name:      loc.Name,
		Timestamp: loc.Timestamp,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to persist location cache")
	}
}

// locateName reverse-geocodes best-effort: any failure degrades to Unknown.
func (r *Resolver) locateName(ctx context.Context, coords prayer.Coordinates) string {
	if r.geocoder == nil {
		return UnknownName
	}
	name, err := r.geocoder.LocateName(ctx, coords)
	if err != nil {
		log.Warn().Err(err).Msg("reverse geocoding failed")
		return UnknownName
	}
	if name == "" {
		return UnknownName
	}
	return name
}

func withinThreshold(a, b prayer.Coordinates) bool {
	return math.Abs(a.Latitude-b.Latitude) < MoveThresholdDeg &&
		math.Abs(a.Longitude-b.Longitude) < MoveThresholdDeg
}
