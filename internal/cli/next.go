package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-widget/internal/config"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

var (
	flagFormat  string
	flagPrayers string
)

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long:  "Display the next upcoming prayer time with a countdown.",
		RunE:  runNext,
	}

	cmd.Flags().StringVar(&flagFormat, "format", prayer.FormatFull, "Display format: time-remaining, next-prayer-time, name-and-time, name-and-remaining, short-name-and-time, short-name-and-remaining, full, or a custom Go template")
	cmd.Flags().StringVar(&flagPrayers, "prayers", "", "Comma-separated list of prayers to track (overrides config)")

	return cmd
}

func runNext(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := newSession(ctx, effectiveConfig(cmd))
	if err != nil {
		return err
	}

	// Priority: --prayers flag > config > defaults.
	if cmd.Flags().Changed("prayers") && flagPrayers != "" {
		names := config.SplitPrayers(flagPrayers)
		if err := prayer.ValidateNames(names); err != nil {
			return err
		}
		s.prayers = names
	}

	result, now, err := s.today(ctx, time.Now())
	if err != nil {
		return err
	}

	prayers, err := prayer.ParseTimings(result.Timings, now, now.Location(), s.prayers)
	if err != nil {
		return err
	}

	next := prayer.NextPrayer(prayers, now)

	// If all today's prayers have passed, fetch tomorrow's first prayer.
	if next == nil {
		tomorrow := now.AddDate(0, 0, 1)

		tResult, fetchErr := s.fetchTimings(ctx, tomorrow)
		if fetchErr != nil {
			// Show the last prayer with a "done" indicator rather than
			// breaking the status bar.
			if len(prayers) > 0 {
				logger.Warn().Err(fetchErr).Msg("failed to fetch tomorrow's times")
				fmt.Printf("%s --:--", prayers[len(prayers)-1].Name)
				return nil
			}
			return fmt.Errorf("failed to fetch tomorrow's times: %w", fetchErr)
		}

		tomorrowPrayers, err := prayer.ParseTimings(tResult.Timings, tomorrow, now.Location(), s.prayers)
		if err != nil {
			return err
		}
		if len(tomorrowPrayers) > 0 {
			next = &tomorrowPrayers[0]
		}
	}

	if next == nil {
		return fmt.Errorf("could not determine next prayer")
	}

	fmt.Print(prayer.FormatOutput(*next, now, flagFormat, s.timeFmt))
	return nil
}
