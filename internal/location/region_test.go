package location

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"prayerbridge/internal/prayer"
)

func TestSuggestMethodRegions(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon float64
		want     prayer.Method
	}{
		{"new york", 40.7, -74.0, prayer.MethodISNA},
		{"makkah", 21.4, 39.8, prayer.MethodUmmAlQura},
		{"cairo", 30.0, 31.2, prayer.MethodEgyptian},
		{"casablanca", 33.6, -7.6, prayer.MethodEgyptian},
		{"tehran", 35.7, 51.4, prayer.MethodTehran},
		{"karachi", 24.9, 67.0, prayer.MethodKarachi},
		{"jakarta", -6.2, 106.8, prayer.MethodSingapore},
		{"london", 51.5, -0.1, prayer.MethodMWL},
		{"sydney", -33.9, 151.2, prayer.MethodMWL},
	}

	for _, tc := range cases {
		got := SuggestMethod(prayer.Coordinates{Latitude: tc.lat, Longitude: tc.lon})
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestSuggestMethodOverlapPriority(t *testing.T) {
	// Kuwait-ish coordinates sit inside both the Gulf and the Iran
	// rectangles; the Gulf rule is checked first.
	got := SuggestMethod(prayer.Coordinates{Latitude: 30, Longitude: 48})
	assert.Equal(t, prayer.MethodUmmAlQura, got)
}

func TestSuggestMethodIsPure(t *testing.T) {
	c := prayer.Coordinates{Latitude: 35.7, Longitude: 51.4}
	first := SuggestMethod(c)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, SuggestMethod(c))
	}
}
