package location

import "prayerbridge/internal/prayer"

// regionRule is an axis-aligned coordinate rectangle mapped to a default
// calculation method. Rules are checked in order; overlaps are resolved by
// position in the slice.
type regionRule struct {
	minLat, maxLat float64
	minLon, maxLon float64
	method         prayer.Method
}

var regionRules = []regionRule{
	// North America.
	{25, 70, -170, -50, prayer.MethodISNA},
	// Middle East / Gulf. Checked before Egypt due to overlap.
	{12, 35, 35, 60, prayer.MethodUmmAlQura},
	// Egypt / North Africa.
	{20, 35, -20, 35, prayer.MethodEgyptian},
	// South Asia.
	{5, 40, 60, 100, prayer.MethodKarachi},
	// Iran. Checked after the Gulf due to overlap.
	{25, 40, 44, 63, prayer.MethodTehran},
	// Southeast Asia.
	{-10, 20, 95, 145, prayer.MethodSingapore},
}

// SuggestMethod maps coordinates to a sensible default calculation method
// for configuration UI pre-selection. It never affects already-configured
// settings.
func SuggestMethod(c prayer.Coordinates) prayer.Method {
	for _, r := range regionRules {
		if c.Latitude >= r.minLat && c.Latitude <= r.maxLat &&
			c.Longitude >= r.minLon && c.Longitude <= r.maxLon {
			return r.method
		}
	}
	return prayer.MethodMWL
}
