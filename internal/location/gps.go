package location

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoFix is returned when no GPS fix can be acquired in time.
var ErrNoFix = errors.New("location unavailable")

// Fix is one raw GPS reading reported by the companion app.
type Fix struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Timestamp time.Time
}

// FixOptions mirror the geolocation request options of the original app:
// how stale a reading may be, and how long to wait for a fresh one.
type FixOptions struct {
	MaxAge  time.Duration
	Timeout time.Duration
}

// FixProvider is the async GPS capability the resolver consumes.
type FixProvider interface {
	CurrentFix(ctx context.Context, opts FixOptions) (Fix, error)
}

// DeviceFeed collects fixes pushed by the companion app (through the HTTP
// API) and serves them to the resolver with max-age/timeout semantics.
type DeviceFeed struct {
	mu      sync.Mutex
	latest  Fix
	has     bool
	waiters []chan Fix
}

func NewDeviceFeed() *DeviceFeed {
	return &DeviceFeed{}
}

// Report records a new fix and wakes any resolver waiting for one.
func (f *DeviceFeed) Report(fix Fix) {
	if fix.Timestamp.IsZero() {
		fix.Timestamp = time.Now()
	}

	f.mu.Lock()
	f.latest = fix
	f.has = true
	waiters := f.waiters
	f.waiters = nil
	f.mu.Unlock()

	for _, w := range waiters {
		w <- fix
	}
}

// CurrentFix returns the latest reading if it is within opts.MaxAge,
// otherwise waits up to opts.Timeout for the companion app to report one.
func (f *DeviceFeed) CurrentFix(ctx context.Context, opts FixOptions) (Fix, error) {
	f.mu.Lock()
	if f.has && (opts.MaxAge <= 0 || time.Since(f.latest.Timestamp) <= opts.MaxAge) {
		fix := f.latest
		f.mu.Unlock()
		return fix, nil
	}

	wait := make(chan Fix, 1)
	f.waiters = append(f.waiters, wait)
	f.mu.Unlock()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case fix := <-wait:
		return fix, nil
	case <-timer.C:
		f.dropWaiter(wait)
		return Fix{}, ErrNoFix
	case <-ctx.Done():
		f.dropWaiter(wait)
		return Fix{}, ctx.Err()
	}
}

func (f *DeviceFeed) dropWaiter(w chan Fix) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.waiters {
		if c == w {
			f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
			break
		}
	}
}
