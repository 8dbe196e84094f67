package location

import (
	"context"
	"fmt"

	"github.com/kelvins/geocoder"

	"prayerbridge/internal/prayer"
)

// GoogleGeocoder resolves names through the Google Maps geocoding API via
// the kelvins/geocoder library. Selected when a Google API key is
// configured; otherwise Nominatim is used.
type GoogleGeocoder struct{}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{}
}

func (g *GoogleGeocoder) LocateName(_ context.Context, coords prayer.Coordinates) (string, error) {
	addresses, err := geocoder.GeocodingReverse(geocoder.Location{
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
	})
	if err != nil {
		return "", fmt.Errorf("google reverse geocode: %w", err)
	}

	for _, addr := range addresses {
		if addr.City != "" {
			return formatDisplayName(addr.City, addr.Country), nil
		}
	}
	if len(addresses) > 0 {
		return formatDisplayName("", addresses[0].Country), nil
	}
	return "", fmt.Errorf("google reverse geocode: empty result")
}
