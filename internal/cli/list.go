package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-widget/internal/api"
	"github.com/smokyabdulrahman/prayer-widget/internal/display"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [days]",
		Short: "Show prayer times for multiple days",
		Long:  "Display a grid of prayer times for N days (default: 7).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args, 7)
		},
	}
}

func newWeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Show prayer times for the next 7 days",
		Long:  "Alias for 'list 7'. Display a grid of prayer times for 7 days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, nil, 7)
		},
	}
}

func newMonthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month",
		Short: "Show prayer times for the next 30 days",
		Long:  "Alias for 'list 30'. Display a grid of prayer times for 30 days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, nil, 30)
		},
	}
}

// dayData holds a single day's parsed data for list/query output.
type dayData struct {
	Date     time.Time
	Timings  api.Timings
	DateInfo api.DateInfo
	Meta     api.Meta
}

// parseDays validates the optional [days] argument.
func parseDays(args []string, def int) (int, error) {
	if len(args) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number of days: %q (must be a positive integer)", args[0])
	}
	return n, nil
}

// runList is the handler for list, week and month.
func runList(cmd *cobra.Command, args []string, defaultDays int) error {
	days, err := parseDays(args, defaultDays)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := newSession(ctx, effectiveConfig(cmd))
	if err != nil {
		return err
	}

	daysList, tzLoc, err := s.calendar(ctx, time.Now(), days)
	if err != nil {
		return err
	}
	todayStr := time.Now().In(tzLoc).Format(time.DateOnly)
	locationStr := s.placeLabel(daysList[0].Meta)

	if FlagJSON {
		return printListJSON(daysList, s.prayers, s.loc, s.timeFmt, tzLoc)
	}

	fmt.Println()
	fmt.Printf("  %s\n", display.Boldf("Prayer Times - %d Days", days))
	fmt.Println()
	fmt.Printf("  %s\n", locationStr)
	fmt.Println()

	headers := append([]string{"Date"}, s.prayers...)
	tbl := display.NewTable(headers)

	for i, dd := range daysList {
		day := dd.Date

		parsed, err := prayer.ParseTimings(dd.Timings, day, tzLoc, s.prayers)
		if err != nil {
			return err
		}

		row := []string{day.Format("Mon 02 Jan")}
		for _, p := range parsed {
			row = append(row, p.Time.Format(s.timeFmt))
		}
		tbl.AddRow(row)

		if day.Format(time.DateOnly) == todayStr {
			tbl.SetHighlightRow(i)
		}
	}

	fmt.Print(tbl.Render())
	fmt.Println()
	return nil
}

// calendar fetches days consecutive days starting at start and returns them
// together with the observer's timezone.
func (s *session) calendar(ctx context.Context, start time.Time, days int) ([]dayData, *time.Location, error) {
	daysList, err := s.fetchCalendarDays(ctx, start, days)
	if err != nil {
		return nil, nil, err
	}
	if len(daysList) == 0 {
		return nil, nil, fmt.Errorf("no calendar data returned")
	}
	tzLoc, err := s.zone(daysList[0].Meta.Timezone)
	if err != nil {
		return nil, nil, err
	}
	// Keep each calendar date, not the instant: the API answered for that date.
	for i := range daysList {
		y, m, d := daysList[i].Date.Date()
		daysList[i].Date = time.Date(y, m, d, 0, 0, 0, 0, tzLoc)
	}
	return daysList, tzLoc, nil
}

type yearMonth struct {
	year, month int
}

// monthsSpanned lists the calendar months touched by days consecutive days
// starting at start, in order.
func monthsSpanned(start time.Time, days int) []yearMonth {
	var months []yearMonth
	seen := make(map[yearMonth]bool)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		ym := yearMonth{d.Year(), int(d.Month())}
		if !seen[ym] {
			seen[ym] = true
			months = append(months, ym)
		}
	}
	return months
}

// fetchCalendarDays fetches prayer data for `days` consecutive days starting from `start`.
// Whole months come from the calendar endpoint and are cached.
func (s *session) fetchCalendarDays(ctx context.Context, start time.Time, days int) ([]dayData, error) {
	key := s.loc.cacheKey(s.method, s.school)
	monthData := make(map[yearMonth][]api.Data)

	for _, ym := range monthsSpanned(start, days) {
		if s.cache != nil {
			if entry := s.cache.LoadCalendar(ym.year, ym.month, key); entry != nil {
				monthData[ym] = entry.Days
				continue
			}
		}

		var (
			resp *api.CalendarResponse
			err  error
		)
		switch s.loc.Mode {
		case locationCity:
			resp, err = s.client.FetchCalendarByCity(ctx, ym.year, ym.month, s.loc.City, s.loc.Country, s.method, s.school)
		case locationAddress:
			resp, err = s.client.FetchCalendarByAddress(ctx, ym.year, ym.month, s.loc.Address, s.method, s.school)
		default:
			resp, err = s.client.FetchCalendarByCoordinates(ctx, ym.year, ym.month, s.loc.Lat, s.loc.Lon, s.method, s.school)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch calendar for %d-%02d: %w", ym.year, ym.month, err)
		}

		monthData[ym] = resp.Data

		if s.cache != nil {
			if err := s.cache.SaveCalendar(ym.year, ym.month, key, resp); err != nil {
				logger.Debug().Err(err).Msg("could not cache calendar")
			}
		}
	}

	return assembleDays(start, days, monthData)
}

// assembleDays picks each requested day out of its month's data.
func assembleDays(start time.Time, days int, monthData map[yearMonth][]api.Data) ([]dayData, error) {
	result := make([]dayData, 0, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		ym := yearMonth{d.Year(), int(d.Month())}
		daysInMonth := monthData[ym]

		dayIdx := d.Day() - 1
		if dayIdx >= len(daysInMonth) {
			return nil, fmt.Errorf("day %d out of range for %d-%02d (got %d days)", d.Day(), ym.year, ym.month, len(daysInMonth))
		}

		apiData := daysInMonth[dayIdx]
		result = append(result, dayData{
			Date:     d,
			Timings:  apiData.Timings,
			DateInfo: apiData.Date,
			Meta:     apiData.Meta,
		})
	}
	return result, nil
}

// listJSONOutput is the JSON structure for the list command.
type listJSONOutput struct {
	Location todayJSONLocation `json:"location"`
	Days     []listJSONDay     `json:"days"`
}

type listJSONDay struct {
	Date    string            `json:"date"`
	Hijri   string            `json:"hijri"`
	Timings map[string]string `json:"timings"`
}

func printListJSON(daysList []dayData, selectedPrayers []string, loc resolvedLocation, goTimeFmt string, tzLoc *time.Location) error {
	out := listJSONOutput{
		Location: jsonLocation(loc, tzLoc, daysList[0].Meta.Latitude, daysList[0].Meta.Longitude),
	}

	for _, dd := range daysList {
		day := dd.Date
		parsed, err := prayer.ParseTimings(dd.Timings, day, tzLoc, selectedPrayers)
		if err != nil {
			return err
		}

		timings := make(map[string]string)
		for _, p := range parsed {
			timings[strings.ToLower(p.Name)] = p.Time.Format(goTimeFmt)
		}

		out.Days = append(out.Days, listJSONDay{
			Date:    day.Format("02 Jan 2006"),
			Hijri:   dd.DateInfo.Hijri.Format(),
			Timings: timings,
		})
	}

	return printJSON(out)
}
