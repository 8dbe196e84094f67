package watch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prayerbridge/internal/prayer"
)

func sampleDay() prayer.Day {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	d := prayer.Day{Date: date}
	at := func(h, m int) time.Time {
		return time.Date(2024, 3, 15, h, m, 0, 0, time.UTC)
	}
	d.Times[prayer.Fajr] = at(5, 12)
	d.Times[prayer.Sunrise] = at(6, 40)
	d.Times[prayer.Dhuhr] = at(12, 30)
	d.Times[prayer.Asr] = at(15, 45)
	d.Times[prayer.Maghrib] = at(18, 20)
	d.Times[prayer.Isha] = at(19, 50)
	return d
}

func TestDataPayloadWireKeys(t *testing.T) {
	day := sampleDay()
	next := prayer.Next{
		Event:            prayer.Asr,
		Time:             day.At(prayer.Asr),
		CountdownSeconds: 3600,
	}

	body, err := NewDataPayload(day, next, "London, GB").Encode()
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(body, &wire))

	assert.Equal(t, float64(5*60+12), wire["1"], "fajr minute-of-day")
	assert.Equal(t, float64(6*60+40), wire["2"], "sunrise minute-of-day")
	assert.Equal(t, float64(19*60+50), wire["6"], "isha minute-of-day")
	assert.Equal(t, "Asr", wire["7"])
	assert.Equal(t, "3:45 PM", wire["8"])
	assert.Equal(t, float64(3600), wire["9"])
	assert.Equal(t, "London, GB", wire["10"])
	assert.Equal(t, float64(0), wire["11"], "error code none")
	assert.Equal(t, float64(prayer.Asr), wire["13"], "next prayer index")
	assert.NotContains(t, wire, "12", "no error message on data payloads")
}

func TestDataPayloadRejectsUnresolvedSentinel(t *testing.T) {
	day := sampleDay()
	sentinel := prayer.Next{Event: prayer.Fajr, CountdownSeconds: -1, Tomorrow: true}

	_, err := NewDataPayload(day, sentinel, "London, GB").Encode()
	assert.Error(t, err, "the roll-to-tomorrow sentinel must never reach the wire")
}

func TestDataPayloadDefaultsLocationName(t *testing.T) {
	day := sampleDay()
	next := prayer.Next{Event: prayer.Fajr, Time: day.At(prayer.Fajr), CountdownSeconds: 1}

	p := NewDataPayload(day, next, "")
	assert.Equal(t, "Unknown", p.LocationName)
}

func TestErrorPayloadWireKeys(t *testing.T) {
	body, err := NewErrorPayload(ErrorLocation, "Location unavailable").Encode()
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(body, &wire))

	assert.Equal(t, float64(ErrorLocation), wire["11"])
	assert.Equal(t, "Location unavailable", wire["12"])
	assert.Len(t, wire, 2, "error payloads carry only code and message")
}

func TestErrorPayloadRequiresNonZeroCode(t *testing.T) {
	_, err := NewErrorPayload(ErrorNone, "nope").Encode()
	assert.Error(t, err)
}

func TestErrorPayloadDefaultMessage(t *testing.T) {
	p := NewErrorPayload(ErrorAppMessage, "")
	assert.Equal(t, "Unknown error", p.Message)
	assert.True(t, p.IsError())
}

func TestIsRefreshRequest(t *testing.T) {
	assert.True(t, IsRefreshRequest([]byte(`{"0":1}`)))
	assert.True(t, IsRefreshRequest([]byte(`{"0":true}`)))
	assert.False(t, IsRefreshRequest([]byte(`{"0":0}`)))
	assert.False(t, IsRefreshRequest([]byte(`{"5":1}`)))
	assert.False(t, IsRefreshRequest([]byte(`garbage`)))
}
