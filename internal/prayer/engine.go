package prayer

import "time"

// Engine is the pure computation layer over a Calculator. It carries no
// state; everything it produces is derived from its inputs.
type Engine struct {
	calc Calculator
}

func NewEngine(calc Calculator) *Engine {
	return &Engine{calc: calc}
}

// ComputeDay computes the six instants for the calendar day containing date.
func (e *Engine) ComputeDay(coords Coordinates, date time.Time, cfg CalcConfig) (Day, error) {
	return e.calc.Compute(coords, date, cfg)
}

// NextEvent scans the day's instants in canonical order and returns the first
// strictly after now, with the countdown floored to whole seconds. When every
// event has passed it returns the roll-to-tomorrow sentinel; resolving that
// against tomorrow's Fajr is the caller's job, which keeps this function free
// of cross-day coupling.
func NextEvent(d Day, now time.Time) Next {
	for _, ev := range Events() {
		t := d.At(ev)
		if t.After(now) {
			return Next{
				Event:            ev,
				Time:             t,
				CountdownSeconds: countdown(t, now),
			}
		}
	}

	return Next{
		Event:            Fajr,
		CountdownSeconds: -1,
		Tomorrow:         true,
	}
}

// ResolveTomorrow turns the roll-to-tomorrow sentinel into a concrete next
// prayer using tomorrow's day. The countdown is computed against now, not the
// date boundary.
func ResolveTomorrow(tomorrow Day, now time.Time) Next {
	fajr := tomorrow.At(Fajr)
	return Next{
		Event:            Fajr,
		Time:             fajr,
		CountdownSeconds: countdown(fajr, now),
		Tomorrow:         true,
	}
}

func countdown(target, now time.Time) int64 {
	secs := target.Sub(now) / time.Second
	return int64(secs)
}
