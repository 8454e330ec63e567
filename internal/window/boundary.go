// Package window models the five daily prayer windows.
//
// A BoundarySet holds the start time-of-day of each prayer. Resolve places an
// instant inside one of the windows (Isha wraps past midnight into the next
// day's Fajr) and Progress turns that window into a fill percentage and a
// countdown.
package window

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Index identifies one of the five prayers in canonical order.
type Index int

const (
	Fajr Index = iota
	Dhuhr
	Asr
	Maghrib
	Isha
)

// Count is the number of boundaries in a BoundarySet.
const Count = 5

// Names maps each Index to its prayer name.
var Names = [Count]string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"}

// String returns the prayer name, e.g. "Asr".
func (i Index) String() string {
	if i < 0 || int(i) >= Count {
		return fmt.Sprintf("Index(%d)", int(i))
	}
	return Names[i]
}

// Next returns the index of the following prayer, wrapping Isha to Fajr.
func (i Index) Next() Index {
	return (i + 1) % Count
}

// ErrMalformedBoundaries is returned for boundary data that cannot be used:
// wrong names, unparseable times, or times that are not strictly increasing.
var ErrMalformedBoundaries = errors.New("malformed boundary data")

// TimeOfDay is a wall-clock time with minute precision and no date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" or "H:MM". A trailing timezone annotation
// such as "15:02 (BST)", which the Al Adhan API sometimes appends, is
// ignored; any other trailing text is an error.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	s := strings.TrimSpace(raw)
	if clock, suffix, found := strings.Cut(s, " "); found {
		if !isZoneAnnotation(strings.TrimSpace(suffix)) {
			return TimeOfDay{}, fmt.Errorf("%w: unexpected text after time in %q", ErrMalformedBoundaries, raw)
		}
		s = clock
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 || !isDigits(hh) || !isDigits(mm) {
		return TimeOfDay{}, fmt.Errorf("%w: invalid time format %q", ErrMalformedBoundaries, raw)
	}

	hour, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: invalid hour in %q", ErrMalformedBoundaries, raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: invalid minute in %q", ErrMalformedBoundaries, raw)
	}
	if hour > 23 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: time out of range %q", ErrMalformedBoundaries, raw)
	}

	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isZoneAnnotation reports whether s looks like "(BST)": parenthesised,
// non-empty, no whitespace inside.
func isZoneAnnotation(s string) bool {
	if len(s) < 3 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	return !strings.ContainsAny(s[1:len(s)-1], " \t()")
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// String formats the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant at this time of day on the calendar date of day,
// in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// BoundarySet holds the start of each prayer window for one day, indexed by Index.
type BoundarySet [Count]TimeOfDay

// NewBoundarySet validates that times are strictly increasing from Fajr to Isha.
func NewBoundarySet(times [Count]TimeOfDay) (BoundarySet, error) {
	for i := 1; i < Count; i++ {
		if times[i].Minutes() <= times[i-1].Minutes() {
			return BoundarySet{}, fmt.Errorf("%w: %s (%s) is not after %s (%s)",
				ErrMalformedBoundaries, Names[i], times[i], Names[i-1], times[i-1])
		}
	}
	return BoundarySet(times), nil
}

// ParseBoundarySet builds a BoundarySet from a name -> "HH:MM" mapping.
// The mapping must contain exactly the five prayer names.
func ParseBoundarySet(raw map[string]string) (BoundarySet, error) {
	if len(raw) != Count {
		return BoundarySet{}, fmt.Errorf("%w: expected %d prayer times, got %d", ErrMalformedBoundaries, Count, len(raw))
	}

	var times [Count]TimeOfDay
	for i, name := range Names {
		s, ok := raw[name]
		if !ok {
			return BoundarySet{}, fmt.Errorf("%w: missing time for %s", ErrMalformedBoundaries, name)
		}
		t, err := ParseTimeOfDay(s)
		if err != nil {
			return BoundarySet{}, fmt.Errorf("%s: %w", name, err)
		}
		times[i] = t
	}

	return NewBoundarySet(times)
}

// Map returns the set as a name -> "HH:MM" mapping, the inverse of ParseBoundarySet.
func (b BoundarySet) Map() map[string]string {
	out := make(map[string]string, Count)
	for i, t := range b {
		out[Names[i]] = t.String()
	}
	return out
}
