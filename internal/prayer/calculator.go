package prayer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sj14/astral/pkg/astral"
)

// ErrCalculation marks failures of the astronomical computation. They are
// deterministic for a given input and must never be retried.
var ErrCalculation = errors.New("prayer time calculation failed")

// Calculator turns (coordinates, date, config) into the six instants of a day.
type Calculator interface {
	Compute(coords Coordinates, date time.Time, cfg CalcConfig) (Day, error)
}

// methodParams describes one named calculation method. Angles are solar
// depression angles in degrees. When ishaInterval is non-zero Isha is a fixed
// offset after Maghrib instead of an angle. A non-zero maghribAngle moves
// Maghrib below the horizon (Tehran); otherwise Maghrib is sunset.
type methodParams struct {
	fajrAngle    float64
	ishaAngle    float64
	ishaInterval time.Duration
	maghribAngle float64
}

var methodTable = map[Method]methodParams{
	MethodMWL:       {fajrAngle: 18, ishaAngle: 17},
	MethodISNA:      {fajrAngle: 15, ishaAngle: 15},
	MethodEgyptian:  {fajrAngle: 19.5, ishaAngle: 17.5},
	MethodUmmAlQura: {fajrAngle: 18.5, ishaInterval: 90 * time.Minute},
	MethodKarachi:   {fajrAngle: 18, ishaAngle: 18},
	MethodTehran:    {fajrAngle: 17.7, ishaAngle: 14, maghribAngle: 4.5},
	MethodSingapore: {fajrAngle: 20, ishaAngle: 18},
	// Moonsighting Committee publishes seasonal rules rather than fixed
	// angles; 18/18 is the common fixed-angle approximation.
	MethodMoonsighting: {fajrAngle: 18, ishaAngle: 18},
}

// AstralCalculator computes prayer times from solar geometry using the
// astral library for horizon events and local math for Asr.
type AstralCalculator struct{}

func NewAstralCalculator() *AstralCalculator {
	return &AstralCalculator{}
}

func (c *AstralCalculator) Compute(coords Coordinates, date time.Time, cfg CalcConfig) (Day, error) {
	params, ok := methodTable[cfg.Method]
	if !ok {
		params = methodTable[MethodMWL]
	}

	shadowFactor := 1.0
	if cfg.Asr == AsrHanafi {
		shadowFactor = 2.0
	}

	obs := astral.Observer{Latitude: coords.Latitude, Longitude: coords.Longitude}
	loc := date.Location()

	fajr, err := astral.Dawn(obs, date, params.fajrAngle)
	if err != nil {
		return Day{}, fmt.Errorf("%w: fajr: %v", ErrCalculation, err)
	}

	sunrise, err := astral.Sunrise(obs, date)
	if err != nil {
		return Day{}, fmt.Errorf("%w: sunrise: %v", ErrCalculation, err)
	}

	sunset, err := astral.Sunset(obs, date)
	if err != nil {
		return Day{}, fmt.Errorf("%w: sunset: %v", ErrCalculation, err)
	}

	// Solar transit is the midpoint of the horizon crossings.
	dhuhr := sunrise.Add(sunset.Sub(sunrise) / 2)

	maghrib := sunset
	if params.maghribAngle > 0 {
		maghrib, err = astral.Dusk(obs, date, params.maghribAngle)
		if err != nil {
			return Day{}, fmt.Errorf("%w: maghrib: %v", ErrCalculation, err)
		}
	}

	var isha time.Time
	if params.ishaInterval > 0 {
		isha = maghrib.Add(params.ishaInterval)
	} else {
		isha, err = astral.Dusk(obs, date, params.ishaAngle)
		if err != nil {
			return Day{}, fmt.Errorf("%w: isha: %v", ErrCalculation, err)
		}
	}

	asr, err := asrTime(coords.Latitude, date, dhuhr, shadowFactor)
	if err != nil {
		return Day{}, err
	}

	day := Day{Date: date}
	day.Times[Fajr] = fajr.In(loc)
	day.Times[Sunrise] = sunrise.In(loc)
	day.Times[Dhuhr] = dhuhr.In(loc)
	day.Times[Asr] = asr.In(loc)
	day.Times[Maghrib] = maghrib.In(loc)
	day.Times[Isha] = isha.In(loc)

	if err := day.Validate(); err != nil {
		return Day{}, err
	}
	return day, nil
}

// asrTime derives Asr from the shadow rule: the moment after transit when an
// object's shadow equals its height times the shadow factor plus its noon
// shadow. Expressed as a solar altitude and converted to an hour angle past
// transit. astral exposes no shadow-ratio event, so this is done directly.
func asrTime(latitude float64, date, transit time.Time, shadowFactor float64) (time.Time, error) {
	decl := solarDeclination(date)

	latRad := latitude * math.Pi / 180
	declRad := decl * math.Pi / 180

	// Target altitude: cot(alt) = factor + tan(|lat - decl|).
	altitude := math.Atan(1 / (shadowFactor + math.Tan(math.Abs(latRad-declRad))))

	cosH := (math.Sin(altitude) - math.Sin(latRad)*math.Sin(declRad)) /
		(math.Cos(latRad) * math.Cos(declRad))
	if cosH < -1 || cosH > 1 {
		return time.Time{}, fmt.Errorf("%w: asr undefined for latitude %.4f on %s",
			ErrCalculation, latitude, date.Format("2006-01-02"))
	}

	hourAngleDeg := math.Acos(cosH) * 180 / math.Pi
	offset := time.Duration(hourAngleDeg / 15 * float64(time.Hour))
	return transit.Add(offset), nil
}

// solarDeclination approximates the sun's declination in degrees for the
// given date (Cooper's formula). Accurate to a fraction of a degree, which is
// well inside the minute-level precision prayer times are displayed at.
func solarDeclination(date time.Time) float64 {
	n := float64(date.YearDay())
	return 23.45 * math.Sin(2*math.Pi*(284+n)/365)
}
