package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	httpapi "prayerbridge/internal/api/http"
	"prayerbridge/internal/config"
	"prayerbridge/internal/location"
	"prayerbridge/internal/prayer"
	"prayerbridge/internal/scheduler"
	"prayerbridge/internal/store"
	"prayerbridge/internal/syncer"
	"prayerbridge/internal/timeline"
	"prayerbridge/internal/watch"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	st := openStore(cfg.DBPath)

	// Shared HTTP client for outbound calls (geocoding, pin store).
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var geocoder location.ReverseGeocoder
	if cfg.GoogleAPIKey != "" {
		geocoder = location.NewGoogleGeocoder(cfg.GoogleAPIKey)
	} else {
		geocoder = location.NewNominatimGeocoder(httpClient, cfg.NominatimBaseURL)
	}

	feed := location.NewDeviceFeed()
	resolver := location.NewResolver(st, feed, geocoder, location.FixOptions{
		MaxAge:  cfg.FixMaxAge,
		Timeout: cfg.FixTimeout,
	})

	engine := prayer.NewEngine(prayer.NewAstralCalculator())

	transport, err := watch.NewMQTTTransport(cfg.MQTTBrokerURL, "prayerbridge", cfg.WatchDeviceID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
	}
	defer transport.Close()

	pins := timeline.NewManager(timeline.NewHTTPPinStore(httpClient, cfg.PinStoreBaseURL, cfg.PinStoreToken))

	orch := syncer.NewOrchestrator(st, resolver, engine, transport, pins)

	if err := transport.SubscribeRefresh(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		orch.Refresh(ctx)
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to watch refresh requests")
	}

	sched := scheduler.New(orch, cfg.RefreshInterval)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "prayerbridge",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})
	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Store:  st,
		Feed:   feed,
		Sync:   orch,
		Engine: engine,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http api listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// First sync as soon as the process is up; the companion may already
	// have a fix to report, and a cached location answers immediately.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		orch.Refresh(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}

// openStore opens the SQLite-backed store, degrading to the in-memory store
// when the database cannot be opened.
func openStore(path string) store.Store {
	db, err := sql.Open("sqlite", path)
	if err == nil {
		err = store.EnsureSchema(db)
	}
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("sqlite unavailable, settings will not survive restarts")
		return store.NewMemoryStore()
	}

	log.Info().Str("path", path).Msg("sqlite store opened")
	return store.NewSQLiteStore(db)
}
