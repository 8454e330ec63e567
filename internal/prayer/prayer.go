package prayer

import (
	"fmt"
	"time"

	"github.com/smokyabdulrahman/prayer-widget/internal/api"
	"github.com/smokyabdulrahman/prayer-widget/internal/window"
)

// Prayer represents a single prayer with its name and time.
type Prayer struct {
	Name string
	Time time.Time
}

// AllPrayerNames lists every prayer/event the API can return, in chronological order.
var AllPrayerNames = []string{
	"Fajr", "Sunrise", "Dhuhr", "Asr", "Sunset", "Maghrib", "Isha",
	"Imsak", "Midnight", "Firstthird", "Lastthird",
}

// DefaultPrayerNames are the prayers tracked by default.
var DefaultPrayerNames = []string{
	"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha",
}

// ShortNames maps full prayer names to single-character abbreviations.
var ShortNames = map[string]string{
	"Fajr":       "F",
	"Sunrise":    "S",
	"Dhuhr":      "D",
	"Asr":        "A",
	"Sunset":     "St",
	"Maghrib":    "M",
	"Isha":       "I",
	"Imsak":      "Im",
	"Midnight":   "Mi",
	"Firstthird": "F3",
	"Lastthird":  "L3",
}

// ParseTimings converts API timings into a slice of Prayer structs for the given date.
// It filters to only include the specified prayer names.
// The location is used to construct proper time.Time values in the correct timezone.
func ParseTimings(timings api.Timings, date time.Time, loc *time.Location, selected []string) ([]Prayer, error) {
	var prayers []Prayer
	for _, name := range selected {
		raw, ok := timings.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown prayer name: %s", name)
		}

		t, err := parseTimeStr(raw, date, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse time for %s (%q): %w", name, raw, err)
		}

		prayers = append(prayers, Prayer{Name: name, Time: t})
	}

	return prayers, nil
}

// ValidateNames reports the first name that is not a known prayer or event.
func ValidateNames(names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("at least one prayer name is required")
	}
	known := make(map[string]bool, len(AllPrayerNames))
	for _, n := range AllPrayerNames {
		known[n] = true
	}
	for _, n := range names {
		if !known[n] {
			return fmt.Errorf("unknown prayer name: %s (valid: %v)", n, AllPrayerNames)
		}
	}
	return nil
}

// Boundaries parses the five window boundaries out of a day of API timings.
func Boundaries(timings api.Timings) (window.BoundarySet, error) {
	return window.ParseBoundarySet(timings.Windows())
}

// NextPrayer finds the next upcoming prayer from the given slice, relative to now.
// If all prayers for today have passed, it returns nil (caller should fetch tomorrow's Fajr).
func NextPrayer(prayers []Prayer, now time.Time) *Prayer {
	for i := range prayers {
		if prayers[i].Time.After(now) {
			return &prayers[i]
		}
	}
	return nil
}

// CurrentPrayer returns the latest prayer that has already started at now,
// or nil if now is before the first one.
func CurrentPrayer(prayers []Prayer, now time.Time) *Prayer {
	var current *Prayer
	for i := range prayers {
		if prayers[i].Time.After(now) {
			break
		}
		current = &prayers[i]
	}
	return current
}

// TimeRemaining returns the duration until the given prayer time.
func TimeRemaining(prayer Prayer, now time.Time) time.Duration {
	return prayer.Time.Sub(now)
}

// FormatRemaining formats a duration as "Xh Ym" or "Ym" if less than an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		return "0m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// parseTimeStr parses a time string like "15:02" or "15:02 (BST)" into a time.Time
// on the given date in the given location.
func parseTimeStr(raw string, date time.Time, loc *time.Location) (time.Time, error) {
	tod, err := window.ParseTimeOfDay(raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), tod.Hour, tod.Minute, 0, 0, loc), nil
}
