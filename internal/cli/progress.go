package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/smokyabdulrahman/prayer-widget/internal/display"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
	"github.com/smokyabdulrahman/prayer-widget/internal/window"
)

var (
	flagProgressYAML   bool
	flagProgressAt     string
	flagProgressFormat string
)

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show how far the current prayer window has progressed",
		Long: "Show the active prayer, how much of its window has elapsed, and the time\n" +
			"left until the next prayer begins.\n\n" +
			"With --format the reading is printed on one line using the same modes as\n" +
			"'next', plus progress, current-and-remaining and remaining-label. Templates\n" +
			"may use .Current, .CurrentShort and .Percent.",
		Args: cobra.NoArgs,
		RunE: runProgress,
	}

	cmd.Flags().BoolVar(&flagProgressYAML, "yaml", false, "Output as YAML")
	cmd.Flags().StringVar(&flagProgressAt, "at", "", "Evaluate at this time instead of now (HH:MM today, or RFC 3339)")
	cmd.Flags().StringVar(&flagProgressFormat, "format", "", "One-line format mode or Go template")

	return cmd
}

// progressOutput is the JSON and YAML shape of a reading.
type progressOutput struct {
	Location       string `json:"location" yaml:"location"`
	Timezone       string `json:"timezone" yaml:"timezone"`
	window.Reading `yaml:",inline"`
	Label          string `json:"label" yaml:"label"`
}

func runProgress(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := newSession(ctx, effectiveConfig(cmd))
	if err != nil {
		return err
	}

	result, now, err := s.today(ctx, time.Now())
	if err != nil {
		return err
	}

	at, err := parseAt(flagProgressAt, now)
	if err != nil {
		return err
	}
	if at.Format(time.DateOnly) != now.Format(time.DateOnly) {
		if result, err = s.fetchTimings(ctx, at); err != nil {
			return err
		}
	}

	reading, err := readingFor(result, at)
	if err != nil {
		return err
	}

	place := s.reversePlace(ctx, result.Meta)
	if place == "" {
		place = s.placeLabel(result.Meta)
	}

	out := progressOutput{
		Location: place,
		Timezone: at.Location().String(),
		Reading:  reading,
		Label:    reading.Remaining.Label(),
	}

	switch {
	case FlagJSON:
		return printJSON(out)
	case flagProgressYAML:
		return printYAML(out)
	case flagProgressFormat != "":
		fmt.Println(prayer.FormatReading(reading, flagProgressFormat, s.timeFmt))
		return nil
	default:
		fmt.Println()
		fmt.Print(display.Card(reading, place, display.TerminalWidth(os.Stdout)))
		fmt.Println()
		return nil
	}
}

// readingFor evaluates the prayer window containing at.
func readingFor(result *fetchResult, at time.Time) (window.Reading, error) {
	set, err := prayer.Boundaries(result.Timings)
	if err != nil {
		return window.Reading{}, err
	}
	return window.Evaluate(at, set)
}

// parseAt resolves an --at value in now's location. "HH:MM" means that time
// on now's date.
func parseAt(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(now.Location()), nil
	}
	tod, err := window.ParseTimeOfDay(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at value %q: want HH:MM or RFC 3339", value)
	}
	return tod.On(now), nil
}

func printYAML(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
