package window

import (
	"errors"
	"fmt"
	"time"
)

// ErrDegenerateWindow is returned when a window has no positive length in
// whole minutes. A valid BoundarySet never produces one.
var ErrDegenerateWindow = errors.New("degenerate prayer window")

// Resolved is the window containing a given instant.
type Resolved struct {
	ActiveIndex Index
	Start       time.Time // when the active prayer began
	End         time.Time // when the next prayer begins
}

// Remaining is a countdown split into whole hours and minutes.
type Remaining struct {
	Hours   int `json:"hours" yaml:"hours"`
	Minutes int `json:"minutes" yaml:"minutes"`
}

// Label renders the countdown the way the widget subtitle shows it.
func (r Remaining) Label() string {
	return fmt.Sprintf("Next prayer in %dh %dm", r.Hours, r.Minutes)
}

// Duration converts the countdown back to a time.Duration.
func (r Remaining) Duration() time.Duration {
	return time.Duration(r.Hours)*time.Hour + time.Duration(r.Minutes)*time.Minute
}

// Reading is the derived state published on every evaluation.
type Reading struct {
	ActiveIndex    Index     `json:"active_index" yaml:"active_index"`
	Prayer         string    `json:"prayer" yaml:"prayer"`
	Next           string    `json:"next" yaml:"next"`
	Start          time.Time `json:"window_start" yaml:"window_start"`
	End            time.Time `json:"window_end" yaml:"window_end"`
	FillPercentage float64   `json:"fill_percentage" yaml:"fill_percentage"`
	Remaining      Remaining `json:"remaining" yaml:"remaining"`
	Day            string    `json:"day" yaml:"day"`
	At             time.Time `json:"at" yaml:"at"`
}

// Resolve finds the window that contains now.
//
// Boundaries are placed on now's calendar date. The first boundary strictly
// after now ends the active window, so an instant equal to a boundary belongs
// to the window that boundary starts. Before Fajr the Isha window that began
// yesterday is still active; after Isha the window ends at tomorrow's Fajr.
func Resolve(now time.Time, set BoundarySet) Resolved {
	next := -1
	for i, b := range set {
		if b.On(now).After(now) {
			next = i
			break
		}
	}

	switch next {
	case -1:
		return Resolved{
			ActiveIndex: Isha,
			Start:       set[Isha].On(now),
			End:         set[Fajr].On(now.AddDate(0, 0, 1)),
		}
	case 0:
		return Resolved{
			ActiveIndex: Isha,
			Start:       set[Isha].On(now.AddDate(0, 0, -1)),
			End:         set[Fajr].On(now),
		}
	default:
		return Resolved{
			ActiveIndex: Index(next - 1),
			Start:       set[next-1].On(now),
			End:         set[next].On(now),
		}
	}
}

// Progress computes how far now is through the resolved window.
func Progress(now time.Time, w Resolved) (Reading, error) {
	total := wholeMinutes(w.Start, w.End)
	if total <= 0 {
		return Reading{}, fmt.Errorf("%w: %s window from %s to %s",
			ErrDegenerateWindow, w.ActiveIndex, w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}

	elapsed := wholeMinutes(w.Start, now)
	fill := 100 * float64(elapsed) / float64(total)
	fill = max(0, min(100, fill))

	left := max(0, wholeMinutes(now, w.End))

	return Reading{
		ActiveIndex:    w.ActiveIndex,
		Prayer:         w.ActiveIndex.String(),
		Next:           w.ActiveIndex.Next().String(),
		Start:          w.Start,
		End:            w.End,
		FillPercentage: fill,
		Remaining:      Remaining{Hours: left / 60, Minutes: left % 60},
		Day:            now.Weekday().String(),
		At:             now,
	}, nil
}

// Evaluate resolves and measures the window containing now in one pass.
func Evaluate(now time.Time, set BoundarySet) (Reading, error) {
	return Progress(now, Resolve(now, set))
}

// wholeMinutes returns the whole minutes from a to b, truncated toward zero.
func wholeMinutes(a, b time.Time) int {
	return int(b.Sub(a) / time.Minute)
}
