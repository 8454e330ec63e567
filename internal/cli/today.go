package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-widget/internal/display"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

func runToday(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := newSession(ctx, effectiveConfig(cmd))
	if err != nil {
		return err
	}

	result, now, err := s.today(ctx, time.Now())
	if err != nil {
		return err
	}

	prayers, err := prayer.ParseTimings(result.Timings, now, now.Location(), s.prayers)
	if err != nil {
		return err
	}

	current := prayer.CurrentPrayer(prayers, now)
	next := prayer.NextPrayer(prayers, now)
	locationStr := s.placeLabel(result.Meta)

	if FlagJSON {
		return printTodayJSON(prayers, current, next, now, result, s.loc, s.timeFmt)
	}

	printTodayRich(prayers, current, next, now, result, locationStr, s.timeFmt)
	return nil
}

// printTodayRich renders the colored terminal output for today's prayer schedule.
func printTodayRich(prayers []prayer.Prayer, current, next *prayer.Prayer, now time.Time, result *fetchResult, locationStr, goTimeFmt string) {
	fmt.Println()
	fmt.Printf("  %s\n", display.Bold("Prayer Times"))
	fmt.Println()

	fmt.Printf("  %s\n", locationStr)
	fmt.Printf("  %s\n", now.Location())
	fmt.Printf("  %s\n", formatGregorianDate(now, result))
	if hijri := result.DateInfo.Hijri.Format(); hijri != "" {
		fmt.Printf("  %s\n", hijri)
	}
	fmt.Println()

	maxNameLen := 0
	for _, p := range prayers {
		maxNameLen = max(maxNameLen, len(p.Name))
	}

	for _, p := range prayers {
		line := fmt.Sprintf("  %s  %s", display.PadRight(p.Name, maxNameLen), p.Time.Format(goTimeFmt))

		switch {
		case current != nil && p.Name == current.Name:
			fmt.Println(display.Dim(line))
		case next != nil && p.Name == next.Name:
			remaining := prayer.FormatRemaining(prayer.TimeRemaining(p, now))
			fmt.Println(display.Accent(line) + display.Accent("  <- next in "+remaining))
		default:
			fmt.Println(line)
		}
	}

	fmt.Println()
}

// formatGregorianDate returns a formatted Gregorian date string.
// Prefers API data; falls back to formatting `now`.
func formatGregorianDate(now time.Time, result *fetchResult) string {
	g := result.DateInfo.Gregorian
	if g.Day != "" && g.Month.En != "" && g.Year != "" {
		return g.Day + " " + g.Month.En + " " + g.Year
	}
	return now.Format("02 Jan 2006")
}

// todayJSON is the JSON output structure for the root command.
type todayJSON struct {
	Location todayJSONLocation `json:"location"`
	Date     todayJSONDate     `json:"date"`
	Timings  map[string]string `json:"timings"`
	Current  string            `json:"current"`
	Next     *todayJSONNext    `json:"next"`
}

type todayJSONLocation struct {
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Address   string  `json:"address,omitempty"`
	Timezone  string  `json:"timezone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type todayJSONDate struct {
	Gregorian string `json:"gregorian"`
	Hijri     string `json:"hijri"`
}

type todayJSONNext struct {
	Prayer    string `json:"prayer"`
	Time      string `json:"time"`
	Remaining string `json:"remaining"`
}

func jsonLocation(loc resolvedLocation, tz *time.Location, lat, lon float64) todayJSONLocation {
	return todayJSONLocation{
		City:      loc.City,
		Country:   loc.Country,
		Address:   loc.Address,
		Timezone:  tz.String(),
		Latitude:  lat,
		Longitude: lon,
	}
}

// printTodayJSON renders structured JSON output.
func printTodayJSON(prayers []prayer.Prayer, current, next *prayer.Prayer, now time.Time, result *fetchResult, loc resolvedLocation, goTimeFmt string) error {
	timings := make(map[string]string)
	for _, p := range prayers {
		timings[strings.ToLower(p.Name)] = p.Time.Format(goTimeFmt)
	}

	out := todayJSON{
		Location: jsonLocation(loc, now.Location(), result.Meta.Latitude, result.Meta.Longitude),
		Date: todayJSONDate{
			Gregorian: formatGregorianDate(now, result),
			Hijri:     result.DateInfo.Hijri.Format(),
		},
		Timings: timings,
	}

	if current != nil {
		out.Current = strings.ToLower(current.Name)
	}
	if next != nil {
		out.Next = &todayJSONNext{
			Prayer:    strings.ToLower(next.Name),
			Time:      next.Time.Format(goTimeFmt),
			Remaining: prayer.FormatRemaining(prayer.TimeRemaining(*next, now)),
		}
	}

	return printJSON(out)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
