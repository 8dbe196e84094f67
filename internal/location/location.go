package location

import (
	"time"

	"prayerbridge/internal/prayer"
)

// Source says where a resolved location came from.
type Source string

const (
	SourceGPS    Source = "gps"
	SourceManual Source = "manual"
	SourceCache  Source = "cache"
)

// ResolvedLocation is one answer from the resolver. It is immutable once
// emitted; a later resolution supersedes it with a new value.
type ResolvedLocation struct {
	prayer.Coordinates
	Name            string
	Source          Source
	SuggestedMethod prayer.Method
	Timestamp       time.Time
}

// Result carries either a resolved location or a terminal resolution error.
type Result struct {
	Location ResolvedLocation
	Err      error
}
