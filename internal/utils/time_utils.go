package utils

import (
	"os"
	"time"
)

var displayLoc *time.Location

func init() {
	displayLoc = loadLocation(os.Getenv("DISPLAY_TZ"))
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Fallback to UTC if timezone data is missing
		// In production docker, ensure tzdata is installed
		return time.UTC
	}
	return loc
}

// SetDisplayLocation changes the zone used by FormatTimestamp
func SetDisplayLocation(name string) {
	displayLoc = loadLocation(name)
}

// GetLocation returns the display *time.Location
func GetLocation() *time.Location {
	return displayLoc
}

// FormatTimestamp renders t as RFC3339 in the display zone
func FormatTimestamp(t time.Time) string {
	return t.In(displayLoc).Format(time.RFC3339)
}

// Now returns the current time truncated to microseconds, the precision every store keeps
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
