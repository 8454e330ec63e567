package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-widget/internal/display"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

var flagQueryDays string

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <prayer>",
		Short: "Query a specific prayer time",
		Long:  "Query a specific prayer time for today, or across multiple days with --days.\n\nValid prayer names: " + strings.Join(prayer.AllPrayerNames, ", "),
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}

	cmd.Flags().StringVar(&flagQueryDays, "days", "", "Number of days to show (or 'week'/'month')")

	return cmd
}

// normalizePrayerName matches name case-insensitively against the known prayers.
func normalizePrayerName(name string) (string, error) {
	for _, known := range prayer.AllPrayerNames {
		if strings.EqualFold(known, name) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown prayer %q; valid names: %s", name, strings.Join(prayer.AllPrayerNames, ", "))
}

// parseQueryDays accepts a positive integer, "week" or "month".
func parseQueryDays(value string) (int, error) {
	switch value {
	case "":
		return 1, nil
	case "week":
		return 7, nil
	case "month":
		return 30, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid --days value %q: must be a positive integer, 'week', or 'month'", value)
	}
	return n, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	prayerName, err := normalizePrayerName(args[0])
	if err != nil {
		return err
	}
	days, err := parseQueryDays(flagQueryDays)
	if err != nil {
		return err
	}

	s, err := newSession(cmd.Context(), effectiveConfig(cmd))
	if err != nil {
		return err
	}

	// A single day uses the daily endpoint, more use the calendar.
	if days == 1 {
		return runQuerySingleDay(cmd, s, prayerName)
	}
	return runQueryMultiDay(cmd, s, prayerName, days)
}

func runQuerySingleDay(cmd *cobra.Command, s *session, prayerName string) error {
	result, now, err := s.today(cmd.Context(), time.Now())
	if err != nil {
		return err
	}

	parsed, err := prayer.ParseTimings(result.Timings, now, now.Location(), []string{prayerName})
	if err != nil {
		return err
	}
	if len(parsed) == 0 {
		return fmt.Errorf("no timing found for %s", prayerName)
	}

	timeStr := parsed[0].Time.Format(s.timeFmt)

	if FlagJSON {
		return printJSON(queryJSONSingle{
			Prayer: strings.ToLower(prayerName),
			Time:   timeStr,
			Date:   now.Format("02 Jan 2006"),
			Hijri:  result.DateInfo.Hijri.Format(),
		})
	}

	fmt.Printf("%s %s\n", prayerName, timeStr)
	return nil
}

func runQueryMultiDay(cmd *cobra.Command, s *session, prayerName string, days int) error {
	daysList, tzLoc, err := s.calendar(cmd.Context(), time.Now(), days)
	if err != nil {
		return err
	}
	todayStr := time.Now().In(tzLoc).Format(time.DateOnly)

	rows := make([]queryJSONDay, 0, len(daysList))
	for _, dd := range daysList {
		parsed, err := prayer.ParseTimings(dd.Timings, dd.Date, tzLoc, []string{prayerName})
		if err != nil {
			return err
		}
		timeStr := ""
		if len(parsed) > 0 {
			timeStr = parsed[0].Time.Format(s.timeFmt)
		}
		rows = append(rows, queryJSONDay{
			Date:  dd.Date.Format("02 Jan 2006"),
			Hijri: dd.DateInfo.Hijri.Format(),
			Time:  timeStr,
		})
	}

	if FlagJSON {
		meta := daysList[0].Meta
		return printJSON(queryJSONMulti{
			Location: jsonLocation(s.loc, tzLoc, meta.Latitude, meta.Longitude),
			Prayer:   strings.ToLower(prayerName),
			Days:     rows,
		})
	}

	fmt.Println()
	fmt.Printf("  %s\n", display.Boldf("%s Times - %d Days", prayerName, days))
	fmt.Println()
	fmt.Printf("  %s\n", s.placeLabel(daysList[0].Meta))
	fmt.Println()

	tbl := display.NewTable([]string{"Date", prayerName})
	for i, dd := range daysList {
		tbl.AddRow([]string{dd.Date.Format("Mon 02 Jan"), rows[i].Time})
		if dd.Date.Format(time.DateOnly) == todayStr {
			tbl.SetHighlightRow(i)
		}
	}

	fmt.Print(tbl.Render())
	fmt.Println()
	return nil
}

type queryJSONSingle struct {
	Prayer string `json:"prayer"`
	Time   string `json:"time"`
	Date   string `json:"date"`
	Hijri  string `json:"hijri"`
}

type queryJSONMulti struct {
	Location todayJSONLocation `json:"location"`
	Prayer   string            `json:"prayer"`
	Days     []queryJSONDay    `json:"days"`
}

type queryJSONDay struct {
	Date  string `json:"date"`
	Hijri string `json:"hijri"`
	Time  string `json:"time"`
}
