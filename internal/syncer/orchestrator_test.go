package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prayerbridge/internal/location"
	"prayerbridge/internal/prayer"
	"prayerbridge/internal/settings"
	"prayerbridge/internal/store"
	"prayerbridge/internal/timeline"
	"prayerbridge/internal/watch"
)

// stubCalculator produces a fixed, valid schedule for whatever date it is
// asked about, and records the method it was invoked with.
type stubCalculator struct {
	mu      sync.Mutex
	methods []prayer.Method
	err     error
}

func (c *stubCalculator) Compute(_ prayer.Coordinates, date time.Time, cfg prayer.CalcConfig) (prayer.Day, error) {
	c.mu.Lock()
	c.methods = append(c.methods, cfg.Method)
	c.mu.Unlock()

	if c.err != nil {
		return prayer.Day{}, c.err
	}

	at := func(h, m int) time.Time {
		return time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, time.UTC)
	}
	d := prayer.Day{Date: date}
	d.Times[prayer.Fajr] = at(5, 12)
	d.Times[prayer.Sunrise] = at(6, 40)
	d.Times[prayer.Dhuhr] = at(12, 30)
	d.Times[prayer.Asr] = at(15, 45)
	d.Times[prayer.Maghrib] = at(18, 20)
	d.Times[prayer.Isha] = at(19, 50)
	return d, nil
}

type fakeTransport struct {
	mu       sync.Mutex
	sent     []watch.Payload
	failNext int
	failAll  bool
}

func (t *fakeTransport) Send(_ context.Context, p watch.Payload) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, p)
	if t.failAll {
		return errors.New("transport down")
	}
	if t.failNext > 0 {
		t.failNext--
		return errors.New("transport hiccup")
	}
	return nil
}

func (t *fakeTransport) payloads() []watch.Payload {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]watch.Payload(nil), t.sent...)
}

// fakeResolver replays canned result batches, one batch per Resolve call.
type fakeResolver struct {
	mu      sync.Mutex
	batches [][]location.Result
	cleared int
}

func (r *fakeResolver) Resolve(_ context.Context, _ settings.Settings) <-chan location.Result {
	r.mu.Lock()
	var batch []location.Result
	if len(r.batches) > 0 {
		batch = r.batches[0]
		r.batches = r.batches[1:]
	}
	r.mu.Unlock()

	out := make(chan location.Result, len(batch))
	for _, res := range batch {
		out <- res
	}
	close(out)
	return out
}

func (r *fakeResolver) ClearCache(context.Context) {
	r.mu.Lock()
	r.cleared++
	r.mu.Unlock()
}

type fakePins struct {
	mu        sync.Mutex
	refreshes int
	retired   int
	done      chan struct{}
}

func (p *fakePins) RefreshDays(_ context.Context, _, _ prayer.Day, _ timeline.Options) {
	p.mu.Lock()
	p.refreshes++
	p.mu.Unlock()
	if p.done != nil {
		close(p.done)
	}
}

func (p *fakePins) RetireDays(_ context.Context, days ...prayer.Day) {
	p.mu.Lock()
	p.retired += len(days)
	p.mu.Unlock()
}

func gpsResult(lat, lon float64) location.Result {
	coords := prayer.Coordinates{Latitude: lat, Longitude: lon}
	return location.Result{Location: location.ResolvedLocation{
		Coordinates:     coords,
		Name:            "Testville, US",
		Source:          location.SourceGPS,
		SuggestedMethod: location.SuggestMethod(coords),
		Timestamp:       time.Now(),
	}}
}

type harness struct {
	orch      *Orchestrator
	store     *store.MemoryStore
	resolver  *fakeResolver
	transport *fakeTransport
	pins      *fakePins
	calc      *stubCalculator
	sleeps    *[]time.Duration
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()

	h := &harness{
		store:     store.NewMemoryStore(),
		resolver:  &fakeResolver{},
		transport: &fakeTransport{},
		pins:      &fakePins{},
		calc:      &stubCalculator{},
		sleeps:    &[]time.Duration{},
	}
	h.orch = NewOrchestrator(h.store, h.resolver, prayer.NewEngine(h.calc), h.transport, h.pins)
	h.orch.now = func() time.Time { return now }
	h.orch.sleep = func(_ context.Context, d time.Duration) bool {
		*h.sleeps = append(*h.sleeps, d)
		return true
	}
	return h
}

func TestRefreshDeliversDataPayload(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	h.pins.done = make(chan struct{})
	h.resolver.batches = [][]location.Result{{gpsResult(40.7, -74.0)}}

	h.orch.Refresh(context.Background())

	sent := h.transport.payloads()
	require.Len(t, sent, 1)
	p := sent[0]
	assert.False(t, p.IsError())
	assert.Equal(t, "Dhuhr", p.NextPrayerName)
	assert.Equal(t, "Testville, US", p.LocationName)
	assert.EqualValues(t, 2*3600+30*60, p.CountdownSeconds)

	select {
	case <-h.pins.done:
	case <-time.After(time.Second):
		t.Fatal("timeline refresh never ran")
	}
}

func TestRetryBackoffSequenceThenTerminalError(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	h.resolver.batches = [][]location.Result{{gpsResult(40.7, -74.0)}}
	h.transport.failAll = true

	h.orch.Refresh(context.Background())

	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, *h.sleeps)

	sent := h.transport.payloads()
	// Four data attempts, then the terminal application error report.
	require.Len(t, sent, 5)
	for _, p := range sent[:4] {
		assert.False(t, p.IsError())
	}
	assert.True(t, sent[4].IsError())
	assert.Equal(t, watch.ErrorAppMessage, sent[4].Code)
}

func TestRetryCounterResetsAfterSuccess(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	h.resolver.batches = [][]location.Result{
		{gpsResult(40.7, -74.0)},
		{gpsResult(40.7, -74.0)},
	}

	h.transport.failNext = 2
	h.orch.Refresh(context.Background())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *h.sleeps)

	// The next cycle starts its backoff from the base delay again.
	*h.sleeps = nil
	h.transport.mu.Lock()
	h.transport.failNext = 1
	h.transport.mu.Unlock()
	h.orch.Refresh(context.Background())
	assert.Equal(t, []time.Duration{2 * time.Second}, *h.sleeps)

	for _, p := range h.transport.payloads() {
		assert.False(t, p.IsError())
	}
}

func TestCalculationFailureReportsOnceWithoutRetry(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	h.resolver.batches = [][]location.Result{{gpsResult(40.7, -74.0)}}
	h.calc.err = errors.New("sun never rises")

	h.orch.Refresh(context.Background())

	assert.Empty(t, *h.sleeps)
	sent := h.transport.payloads()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].IsError())
	assert.Equal(t, watch.ErrorCalculation, sent[0].Code)
}

func TestLocationFailureReportsLocationError(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	h.resolver.batches = [][]location.Result{{{Err: location.ErrNoFix}}}

	h.orch.Refresh(context.Background())

	sent := h.transport.payloads()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].IsError())
	assert.Equal(t, watch.ErrorLocation, sent[0].Code)
}

func TestRollToTomorrowResolvedBeforeDelivery(t *testing.T) {
	// 21:00 is after Isha; the watch must see tomorrow's Fajr, countdown
	// computed against now.
	now := time.Date(2024, 3, 15, 21, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	h.resolver.batches = [][]location.Result{{gpsResult(40.7, -74.0)}}

	h.orch.Refresh(context.Background())

	sent := h.transport.payloads()
	require.Len(t, sent, 1)
	p := sent[0]
	assert.False(t, p.IsError())
	assert.Equal(t, "Fajr", p.NextPrayerName)
	assert.EqualValues(t, 8*3600+12*60, p.CountdownSeconds)
}

func TestDefaultSettingsFollowRegionalSuggestion(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	// Cairo: the regional suggestion is the Egyptian method.
	h.resolver.batches = [][]location.Result{{gpsResult(30.0, 31.2)}}

	h.orch.Refresh(context.Background())

	require.NotEmpty(t, h.calc.methods)
	assert.Equal(t, prayer.MethodEgyptian, h.calc.methods[0])
}

func TestSavedSettingsOverrideSuggestion(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	h.resolver.batches = [][]location.Result{{gpsResult(30.0, 31.2)}}

	saved := settings.Defaults()
	saved.CalculationMethod = string(prayer.MethodKarachi)
	require.NoError(t, h.store.SaveSettings(context.Background(), saved))

	h.orch.Refresh(context.Background())

	require.NotEmpty(t, h.calc.methods)
	assert.Equal(t, prayer.MethodKarachi, h.calc.methods[0])
}

func TestApplySettingsClearsCacheOnManualChange(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	h.resolver.batches = [][]location.Result{{gpsResult(40.7, -74.0)}}

	updated := settings.Defaults()
	updated.ManualLocation = true
	updated.ManualLatitude = 21.42
	updated.ManualLongitude = 39.82

	require.NoError(t, h.orch.ApplySettings(context.Background(), updated))
	assert.Equal(t, 1, h.resolver.cleared)

	loaded, err := h.store.LoadSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, updated, loaded)
}

func TestApplySettingsRejectsInvalid(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)

	bad := settings.Defaults()
	bad.CalculationMethod = "not-a-method"

	assert.Error(t, h.orch.ApplySettings(context.Background(), bad))
	_, err := h.store.LoadSettings(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestApplySettingsRetiresPinsWhenTimelineDisabled(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	h.resolver.batches = [][]location.Result{
		{gpsResult(40.7, -74.0)},
		{gpsResult(40.7, -74.0)},
	}

	enabled := settings.Defaults()
	require.NoError(t, h.store.SaveSettings(context.Background(), enabled))
	h.orch.Refresh(context.Background())

	disabled := enabled
	disabled.TimelineEnabled = false
	require.NoError(t, h.orch.ApplySettings(context.Background(), disabled))

	h.pins.mu.Lock()
	defer h.pins.mu.Unlock()
	assert.Equal(t, 2, h.pins.retired, "today and tomorrow retired")
}

func TestNewerCycleInvalidatesRetryingDelivery(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, now)
	h.resolver.batches = [][]location.Result{
		{gpsResult(40.7, -74.0)},
		{}, // the superseding cycle resolves nothing
	}
	h.transport.failAll = true

	// A new cycle starting mid-backoff marks the old delivery stale.
	h.orch.sleep = func(_ context.Context, d time.Duration) bool {
		*h.sleeps = append(*h.sleeps, d)
		if len(*h.sleeps) == 1 {
			h.orch.Refresh(context.Background())
		}
		return true
	}

	h.orch.Refresh(context.Background())

	sent := h.transport.payloads()
	// One failed attempt, then the stale cycle stops: no further attempts
	// and no terminal error report from it.
	require.Len(t, sent, 1)
	assert.False(t, sent[0].IsError())
}
