package timeline

import (
	"fmt"
	"time"

	"prayerbridge/internal/prayer"
)

// PinPrefix namespaces every pin this app owns in the remote store.
const PinPrefix = "prayer-keeper-"

// pinDurationMinutes is how long a prayer pin spans on the timeline.
const pinDurationMinutes = 30

const prayerIcon = "system://images/TIMELINE_SUN"

// Reminder is the optional single sub-event fired before the pin's time.
type Reminder struct {
	Time  time.Time
	Title string
}

// Pin is one timeline entry. Pins are derived fresh every sync cycle; the
// remote store is the system of record.
type Pin struct {
	ID       string
	Time     time.Time
	Duration int
	Title    string
	Subtitle string
	Icon     string
	Reminder *Reminder
}

// PinID derives the deterministic pin identity from prayer and calendar
// date, making repeated syncs idempotent upserts.
func PinID(ev prayer.Event, t time.Time) string {
	return fmt.Sprintf("%s%s-%s", PinPrefix, ev.Key(), t.Format("2006-01-02"))
}

// NewPrayerPin builds the pin for one prayer. A reminder is attached only
// when leadMinutes is positive.
func NewPrayerPin(ev prayer.Event, at time.Time, leadMinutes int, use24Hour bool) Pin {
	pin := Pin{
		ID:       PinID(ev, at),
		Time:     at,
		Duration: pinDurationMinutes,
		Title:    ev.String() + " Prayer",
		Subtitle: prayer.FormatTime(at, use24Hour),
		Icon:     prayerIcon,
	}

	if leadMinutes > 0 {
		pin.Reminder = &Reminder{
			Time:  at.Add(-time.Duration(leadMinutes) * time.Minute),
			Title: fmt.Sprintf("%s in %d min", ev, leadMinutes),
		}
	}

	return pin
}

// Wire shapes for the remote pin store.

type pinLayout struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	TinyIcon string `json:"tinyIcon"`
}

type pinReminderBody struct {
	Time   string    `json:"time"`
	Layout pinLayout `json:"layout"`
}

type pinBody struct {
	ID        string            `json:"id"`
	Time      string            `json:"time"`
	Duration  int               `json:"duration"`
	Layout    pinLayout         `json:"layout"`
	Reminders []pinReminderBody `json:"reminders,omitempty"`
}

// isoTime renders the store's timestamp format: RFC3339 UTC without
// fractional seconds.
func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func (p Pin) wire() pinBody {
	body := pinBody{
		ID:       p.ID,
		Time:     isoTime(p.Time),
		Duration: p.Duration,
		Layout: pinLayout{
			Type:     "genericPin",
			Title:    p.Title,
			Subtitle: p.Subtitle,
			TinyIcon: p.Icon,
		},
	}
	if p.Reminder != nil {
		body.Reminders = []pinReminderBody{{
			Time: isoTime(p.Reminder.Time),
			Layout: pinLayout{
				Type:     "genericReminder",
				Title:    p.Reminder.Title,
				TinyIcon: p.Icon,
			},
		}}
	}
	return body
}
