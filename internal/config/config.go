package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type AppConfig struct {
	// HTTP API bind port.
	Port string

	// SQLite database path for settings and the persistent location cache.
	DBPath string

	// Outbound HTTP client timeout (geocoding, pin store).
	HTTPTimeout time.Duration

	// MQTT broker for the watch delivery channel.
	MQTTBrokerURL string
	// Device identifier of the paired watch; part of the MQTT topic.
	WatchDeviceID string

	// Reverse geocoding.
	NominatimBaseURL string
	// Optional Google Maps key; when set the Google geocoder is used instead
	// of Nominatim.
	GoogleAPIKey string

	// Remote pin store.
	PinStoreBaseURL string
	PinStoreToken   string

	// RefreshInterval controls how often a sync cycle runs on top of the
	// midnight rollover refresh. Zero disables periodic refresh.
	RefreshInterval time.Duration

	// How long a GPS fix reported by the companion app stays usable.
	FixMaxAge time.Duration
	// How long the resolver waits for a fresh fix before giving up.
	FixTimeout time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.DBPath = getenvDefault("DB_PATH", "prayerbridge.db")

	timeout, err := getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	cfg.MQTTBrokerURL = getenvDefault("MQTT_BROKER_URL", "tcp://127.0.0.1:1883")
	cfg.WatchDeviceID = getenvDefault("WATCH_DEVICE_ID", "default")

	cfg.NominatimBaseURL = getenvDefault("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org/reverse")
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")

	cfg.PinStoreBaseURL = getenvDefault("PIN_STORE_BASE_URL", "https://timeline-api.rebble.io/v1/user/pins")
	cfg.PinStoreToken = os.Getenv("PIN_STORE_TOKEN")

	refresh, err := getenvDuration("REFRESH_INTERVAL", "30m")
	if err != nil {
		return nil, err
	}
	cfg.RefreshInterval = refresh

	maxAge, err := getenvDuration("FIX_MAX_AGE", "5m")
	if err != nil {
		return nil, err
	}
	cfg.FixMaxAge = maxAge

	fixTimeout, err := getenvDuration("FIX_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	cfg.FixTimeout = fixTimeout

	return cfg, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
