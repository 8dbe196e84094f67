package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"prayerbridge/internal/location"
	"prayerbridge/internal/prayer"
	"prayerbridge/internal/settings"
	"prayerbridge/internal/store"
)

// SyncControl is the orchestrator surface the API needs.
type SyncControl interface {
	Refresh(ctx context.Context)
	ApplySettings(ctx context.Context, s settings.Settings) error
}

// Deps carries everything the handlers touch.
type Deps struct {
	Store  store.Store
	Feed   *location.DeviceFeed
	Sync   SyncControl
	Engine *prayer.Engine
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/config", configPageHandler(deps))

	v1 := app.Group("/api/v1")

	v1.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(currentSettings(c.Context(), deps.Store))
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		// Start from the current settings so a partial body is a merge,
		// not a reset.
		cfg := currentSettings(c.Context(), deps.Store)
		if err := c.BodyParser(&cfg); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := deps.Sync.ApplySettings(c.Context(), cfg); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(cfg)
	})

	// The configuration page closes with a pebblejs://close#<fragment> URL;
	// the watch companion posts that URL here verbatim.
	v1.Post("/settings/response", func(c *fiber.Ctx) error {
		var body struct {
			Response string `json:"response"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		base := currentSettings(c.Context(), deps.Store)
		merged, changed := settings.ParseConfigResponse(body.Response, base)
		if !changed {
			return c.JSON(fiber.Map{"changed": false, "settings": base})
		}

		if err := deps.Sync.ApplySettings(c.Context(), merged); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"changed": true, "settings": merged})
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		go deps.Sync.Refresh(context.WithoutCancel(c.Context()))
		return c.SendStatus(fiber.StatusAccepted)
	})

	v1.Post("/device/fix", func(c *fiber.Ctx) error {
		var req fixRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		deps.Feed.Report(location.Fix{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Accuracy:  req.Accuracy,
			Timestamp: time.Now(),
		})
		return c.SendStatus(fiber.StatusAccepted)
	})

	v1.Get("/prayers/today", func(c *fiber.Ctx) error {
		cfg := currentSettings(c.Context(), deps.Store)

		coords, name, err := knownLocation(c.Context(), deps.Store, cfg)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "no known location; report a device fix or set a manual location")
		}

		now := time.Now()
		day, err := deps.Engine.ComputeDay(coords, now, cfg.CalcConfig())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "prayer time computation failed")
		}

		next := prayer.NextEvent(day, now)
		if next.Tomorrow {
			tomorrow, err := deps.Engine.ComputeDay(coords, now.AddDate(0, 0, 1), cfg.CalcConfig())
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "prayer time computation failed")
			}
			next = prayer.ResolveTomorrow(tomorrow, now)
		}

		times := make(map[string]string, 6)
		for _, ev := range prayer.Events() {
			times[ev.Key()] = day.At(ev).Format(time.RFC3339)
		}

		return c.JSON(fiber.Map{
			"date":            day.Date.Format("2006-01-02"),
			"location":        name,
			"method":          string(cfg.CalcConfig().Method),
			"suggestedMethod": string(location.SuggestMethod(coords)),
			"times":           times,
			"next": fiber.Map{
				"name":             next.Event.String(),
				"time":             next.Time.Format(time.RFC3339),
				"countdownSeconds": next.CountdownSeconds,
				"tomorrow":         next.Tomorrow,
			},
		})
	})
}

// fixRequest is the body of a companion-reported GPS fix.
type fixRequest struct {
	Latitude  float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Accuracy  float64 `json:"accuracy" validate:"gte=0"`
}

// currentSettings loads the persisted settings, falling back to the defaults
// when nothing was ever saved.
func currentSettings(ctx context.Context, st store.Store) settings.Settings {
	cfg, err := st.LoadSettings(ctx)
	if err != nil {
		return settings.Defaults()
	}
	return cfg
}

// knownLocation answers with the manual override when set, otherwise the last
// cached location of any age.
func knownLocation(ctx context.Context, st store.Store, cfg settings.Settings) (prayer.Coordinates, string, error) {
	if cfg.HasManualCoordinates() {
		return prayer.Coordinates{
			Latitude:  cfg.ManualLatitude,
			Longitude: cfg.ManualLongitude,
		}, "Manual Location", nil
	}

	rec, err := st.LoadLocation(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return prayer.Coordinates{}, "", err
		}
		return prayer.Coordinates{}, "", store.ErrNotFound
	}
	return prayer.Coordinates{Latitude: rec.Latitude, Longitude: rec.Longitude}, rec.Name, nil
}
