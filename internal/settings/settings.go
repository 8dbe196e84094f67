package settings

import (
	"github.com/go-playground/validator/v10"

	"prayerbridge/internal/prayer"
)

var validate = validator.New()

// Settings is the user-facing configuration round-tripped through the
// configuration page and persisted in the store. JSON keys match the wire
// format of the configuration page fragment.
type Settings struct {
	CalculationMethod string  `json:"calculationMethod" validate:"required,oneof=mwl isna egyptian umm_al_qura karachi tehran singapore moonsighting"`
	AsrMethod         string  `json:"asrMethod" validate:"required,oneof=shafi hanafi"`
	ManualLocation    bool    `json:"manualLocation"`
	ManualLatitude    float64 `json:"manualLatitude" validate:"gte=-90,lte=90"`
	ManualLongitude   float64 `json:"manualLongitude" validate:"gte=-180,lte=180"`
	TimelineEnabled   bool    `json:"timelineEnabled"`
	ReminderMinutes   int     `json:"reminderMinutes" validate:"gte=0,lte=120"`
	VibrationEnabled  bool    `json:"vibrationEnabled"`
}

// Defaults returns the out-of-the-box settings.
func Defaults() Settings {
	return Settings{
		CalculationMethod: string(prayer.MethodMWL),
		AsrMethod:         string(prayer.AsrShafi),
		ManualLocation:    false,
		ManualLatitude:    0,
		ManualLongitude:   0,
		TimelineEnabled:   true,
		ReminderMinutes:   10,
		VibrationEnabled:  true,
	}
}

// Validate checks field constraints.
func (s Settings) Validate() error {
	return validate.Struct(s)
}

// CalcConfig converts the settings into the prayer engine's input.
func (s Settings) CalcConfig() prayer.CalcConfig {
	cfg := prayer.CalcConfig{
		Method: prayer.Method(s.CalculationMethod),
		Asr:    prayer.AsrConvention(s.AsrMethod),
	}
	if !cfg.Method.Valid() {
		cfg.Method = prayer.MethodMWL
	}
	if !cfg.Asr.Valid() {
		cfg.Asr = prayer.AsrShafi
	}
	return cfg
}

// HasManualCoordinates reports whether the manual override is usable: both
// coordinates set and not the (0,0) "unset" sentinel.
func (s Settings) HasManualCoordinates() bool {
	return s.ManualLocation && s.ManualLatitude != 0 && s.ManualLongitude != 0
}
