package watch

import (
	"encoding/json"
	"fmt"

	"prayerbridge/internal/prayer"
)

// ErrorCode is the watch-facing error taxonomy.
type ErrorCode int

const (
	ErrorNone        ErrorCode = 0
	ErrorLocation    ErrorCode = 1
	ErrorNetwork     ErrorCode = 2
	ErrorCalculation ErrorCode = 3
	ErrorAppMessage  ErrorCode = 4
)

// Wire keys of the watch message dictionary. Numeric values are part of the
// device protocol and must not change.
const (
	keyRequestData     = 0
	keyFajrTime        = 1
	keySunriseTime     = 2
	keyDhuhrTime       = 3
	keyAsrTime         = 4
	keyMaghribTime     = 5
	keyIshaTime        = 6
	keyNextPrayerName  = 7
	keyNextPrayerTime  = 8
	keyCountdownSecs   = 9
	keyLocationName    = 10
	keyErrorCode       = 11
	keyErrorMessage    = 12
	keyNextPrayerIndex = 13
)

// Payload is the fixed-shape watch message. Exactly one of the two kinds is
// sent per delivery attempt: prayer data or an error report.
type Payload struct {
	// Minute-of-day for each of the six events, canonical order.
	Minutes [6]int

	NextPrayerName   string
	NextPrayerTime   string
	NextPrayerIndex  int
	CountdownSeconds int64

	LocationName string

	Code    ErrorCode
	Message string

	isError bool
}

// NewDataPayload builds the prayer summary message. next must already be
// resolved: the roll-to-tomorrow sentinel is rejected at Encode time.
func NewDataPayload(day prayer.Day, next prayer.Next, locationName string) Payload {
	p := Payload{
		NextPrayerName:   next.Event.String(),
		NextPrayerTime:   prayer.FormatTime(next.Time, false),
		NextPrayerIndex:  int(next.Event),
		CountdownSeconds: next.CountdownSeconds,
		LocationName:     locationName,
		Code:             ErrorNone,
	}
	if p.LocationName == "" {
		p.LocationName = "Unknown"
	}
	for i, ev := range prayer.Events() {
		p.Minutes[i] = prayer.MinuteOfDay(day.At(ev))
	}
	return p
}

// NewErrorPayload builds the error report message.
func NewErrorPayload(code ErrorCode, message string) Payload {
	if message == "" {
		message = "Unknown error"
	}
	return Payload{isError: true, Code: code, Message: message}
}

// IsError reports whether the payload is an error report.
func (p Payload) IsError() bool {
	return p.isError
}

// Encode validates the payload and renders the wire dictionary as JSON with
// the protocol's integer keys.
func (p Payload) Encode() ([]byte, error) {
	if p.isError {
		if p.Code == ErrorNone {
			return nil, fmt.Errorf("error payload with code 0")
		}
		return json.Marshal(map[int]any{
			keyErrorCode:    int(p.Code),
			keyErrorMessage: p.Message,
		})
	}

	if p.CountdownSeconds < 0 {
		return nil, fmt.Errorf("unresolved next-prayer countdown %d", p.CountdownSeconds)
	}

	return json.Marshal(map[int]any{
		keyFajrTime:        p.Minutes[prayer.Fajr],
		keySunriseTime:     p.Minutes[prayer.Sunrise],
		keyDhuhrTime:       p.Minutes[prayer.Dhuhr],
		keyAsrTime:         p.Minutes[prayer.Asr],
		keyMaghribTime:     p.Minutes[prayer.Maghrib],
		keyIshaTime:        p.Minutes[prayer.Isha],
		keyNextPrayerName:  p.NextPrayerName,
		keyNextPrayerTime:  p.NextPrayerTime,
		keyCountdownSecs:   p.CountdownSeconds,
		keyLocationName:    p.LocationName,
		keyErrorCode:       int(ErrorNone),
		keyNextPrayerIndex: p.NextPrayerIndex,
	})
}

// IsRefreshRequest reports whether an inbound watch message asks for a data
// refresh (REQUEST_DATA key set truthy).
func IsRefreshRequest(raw []byte) bool {
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil {
		return false
	}
	v, ok := msg[fmt.Sprint(keyRequestData)]
	if !ok {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	default:
		return false
	}
}
