package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"prayerbridge/internal/common"
	"prayerbridge/internal/httpx"
	"prayerbridge/internal/prayer"
)

// Display names longer than this do not fit the watch layout.
const maxDisplayNameLen = 28

// ReverseGeocoder turns coordinates into a short display name. Failures are
// expected to be absorbed by callers; a name is always best-effort.
type ReverseGeocoder interface {
	LocateName(ctx context.Context, coords prayer.Coordinates) (string, error)
}

// NominatimGeocoder resolves names against the OpenStreetMap Nominatim API.
// No API key required.
type NominatimGeocoder struct {
	baseURL string
	httpCfg httpx.ClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewNominatimGeocoder(client *http.Client, baseURL string) *NominatimGeocoder {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nominatim",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &NominatimGeocoder{
		baseURL: baseURL,
		httpCfg: httpx.ClientConfig{
			Client: client,
			Backoff: httpx.BackoffConfig{
				MaxRetries:      2,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (g *NominatimGeocoder) LocateName(ctx context.Context, coords prayer.Coordinates) (string, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("format", "json")
		values.Set("lat", fmt.Sprintf("%f", coords.Latitude))
		values.Set("lon", fmt.Sprintf("%f", coords.Longitude))
		values.Set("zoom", "10")
		values.Set("addressdetails", "1")

		u := fmt.Sprintf("%s?%s", g.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "prayerbridge/1.0")
		return req, nil
	}

	resp, err := httpx.Do(ctx, g.httpCfg, g.circuit, buildRequest, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		Address struct {
			City         string `json:"city"`
			Town         string `json:"town"`
			Village      string `json:"village"`
			Municipality string `json:"municipality"`
			County       string `json:"county"`
			CountryCode  string `json:"country_code"`
		} `json:"address"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}

	city := common.FirstNonEmpty(
		payload.Address.City,
		payload.Address.Town,
		payload.Address.Village,
		payload.Address.Municipality,
		payload.Address.County,
	)
	country := strings.ToUpper(payload.Address.CountryCode)

	return formatDisplayName(city, country), nil
}

// formatDisplayName builds the "City, CC" watch display string, truncating
// the city with an ellipsis when the combination does not fit.
func formatDisplayName(city, country string) string {
	switch {
	case city != "" && country != "":
		name := city + ", " + country
		if len([]rune(name)) > maxDisplayNameLen {
			return common.TruncateEllipsis(city, maxDisplayNameLen-1)
		}
		return name
	case city != "":
		return common.TruncateEllipsis(city, maxDisplayNameLen)
	case country != "":
		return country
	default:
		return UnknownName
	}
}
