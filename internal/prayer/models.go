package prayer

import (
	"fmt"
	"strings"
	"time"
)

// Event identifies one of the six daily events in canonical order.
type Event int

const (
	Fajr Event = iota
	Sunrise
	Dhuhr
	Asr
	Maghrib
	Isha

	eventCount = 6
)

var eventNames = [eventCount]string{"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha"}

func (e Event) String() string {
	if e < 0 || e >= eventCount {
		return "unknown"
	}
	return eventNames[e]
}

// Key returns the lowercase identifier used in pin ids.
func (e Event) Key() string {
	return strings.ToLower(e.String())
}

// Ritual reports whether the event is an actual prayer. Sunrise is a
// countdown target for the watch but never a reminder subject.
func (e Event) Ritual() bool {
	return e != Sunrise
}

// Events lists all six events in canonical order.
func Events() [eventCount]Event {
	return [eventCount]Event{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}
}

// RitualEvents lists the five prayers eligible for timeline pins.
func RitualEvents() []Event {
	return []Event{Fajr, Dhuhr, Asr, Maghrib, Isha}
}

// Coordinates is a geographic position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Method is a named regional calculation parameter set.
type Method string

const (
	MethodMWL          Method = "mwl"
	MethodISNA         Method = "isna"
	MethodEgyptian     Method = "egyptian"
	MethodUmmAlQura    Method = "umm_al_qura"
	MethodKarachi      Method = "karachi"
	MethodTehran       Method = "tehran"
	MethodSingapore    Method = "singapore"
	MethodMoonsighting Method = "moonsighting"
)

// Methods lists all supported calculation methods.
func Methods() []Method {
	return []Method{
		MethodMWL, MethodISNA, MethodEgyptian, MethodUmmAlQura,
		MethodKarachi, MethodTehran, MethodSingapore, MethodMoonsighting,
	}
}

// Valid reports whether m names a known method.
func (m Method) Valid() bool {
	_, ok := methodTable[m]
	return ok
}

// AsrConvention selects the juristic shadow rule for Asr.
type AsrConvention string

const (
	AsrShafi  AsrConvention = "shafi"  // standard, shadow factor 1
	AsrHanafi AsrConvention = "hanafi" // later, shadow factor 2
)

// Valid reports whether a names a known convention.
func (a AsrConvention) Valid() bool {
	return a == AsrShafi || a == AsrHanafi
}

// CalcConfig is the read-only calculation input supplied by the caller.
type CalcConfig struct {
	Method Method
	Asr    AsrConvention
}

// Day holds the six computed instants for one calendar day, in canonical
// event order.
type Day struct {
	Date  time.Time
	Times [eventCount]time.Time
}

// At returns the instant of the given event.
func (d Day) At(e Event) time.Time {
	return d.Times[e]
}

// Validate checks the strictly-increasing invariant.
func (d Day) Validate() error {
	for i := 1; i < eventCount; i++ {
		if !d.Times[i].After(d.Times[i-1]) {
			return fmt.Errorf("%w: %s (%s) not after %s (%s)",
				ErrCalculation,
				Event(i), d.Times[i].Format(time.RFC3339),
				Event(i-1), d.Times[i-1].Format(time.RFC3339))
		}
	}
	return nil
}

// Next describes the upcoming event relative to some reference time.
// A zero Time with a negative countdown is the roll-to-tomorrow sentinel:
// every event of the day has passed and the caller must compute tomorrow's
// Fajr before handing the value to any consumer.
type Next struct {
	Event            Event
	Time             time.Time
	CountdownSeconds int64
	Tomorrow         bool
}

// MinuteOfDay converts an instant to minutes since local midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// FormatTime renders an instant as a human-readable clock time. The 12-hour
// form maps hour 0 to 12 and uses AM/PM.
func FormatTime(t time.Time, use24Hour bool) string {
	hours := t.Hour()
	minutes := t.Minute()

	if use24Hour {
		return fmt.Sprintf("%02d:%02d", hours, minutes)
	}

	ampm := "AM"
	if hours >= 12 {
		ampm = "PM"
	}
	hours %= 12
	if hours == 0 {
		hours = 12
	}
	return fmt.Sprintf("%d:%02d %s", hours, minutes, ampm)
}
