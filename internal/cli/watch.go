package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-widget/internal/display"
	"github.com/smokyabdulrahman/prayer-widget/internal/driver"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

const clearScreen = "\033[H\033[2J"

var flagWatchFormat string

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of the current prayer window",
		Long: "Redraw the current prayer window every interval until interrupted.\n" +
			"Prayer times are fetched again shortly after local midnight.\n\n" +
			"With --format, lines built from stale or rejected data start with \"! \".",
		Args: cobra.NoArgs,
		RunE: runWatch,
	}

	cmd.Flags().String("interval", "", "Evaluation interval, e.g. 30s (overrides config; default 60s)")
	cmd.Flags().StringVar(&flagWatchFormat, "format", "", "Print one line per update in this format instead of redrawing the card")

	return cmd
}

// watchView renders driver updates to a terminal.
type watchView struct {
	w       io.Writer
	format  string
	timeFmt string
	width   int
	clear   bool

	mu    sync.Mutex
	place string
}

func (v *watchView) setPlace(place string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.place = place
}

// render has the driver.Subscriber signature.
func (v *watchView) render(u driver.Update) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.format != "" {
		v.renderLine(u)
		return
	}

	if v.clear {
		fmt.Fprint(v.w, clearScreen)
	}
	fmt.Fprintln(v.w)
	if u.HasReading {
		fmt.Fprint(v.w, display.Card(u.Reading, v.place, v.width))
	} else {
		fmt.Fprintln(v.w, "  "+display.Dim("waiting for prayer times"))
	}
	if u.Err != nil {
		fmt.Fprint(v.w, display.StaleNotice(u.Err))
	}
}

// renderLine prints one line per update. Lines built from a reading the
// driver no longer trusts start with "! ", and a data error with no reading
// to fall back on is printed on its own.
func (v *watchView) renderLine(u driver.Update) {
	switch {
	case u.HasReading && u.Err != nil:
		fmt.Fprintln(v.w, "! "+prayer.FormatReading(u.Reading, v.format, v.timeFmt))
	case u.HasReading:
		fmt.Fprintln(v.w, prayer.FormatReading(u.Reading, v.format, v.timeFmt))
	case u.Err != nil:
		fmt.Fprintf(v.w, "! %v\n", u.Err)
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := effectiveConfig(cmd)
	if err := overrideFromFlags(cmd, cfg, map[string]string{"interval": "interval"}); err != nil {
		return err
	}

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}

	view := &watchView{
		w:       os.Stdout,
		format:  flagWatchFormat,
		timeFmt: s.timeFmt,
		width:   display.TerminalWidth(os.Stdout),
		clear:   display.Enabled(),
	}

	zone := newZoneClock(time.Local)
	d := driver.New(
		driver.WithClock(zone),
		driver.WithInterval(cfg.IntervalOrDefault(driver.DefaultInterval)),
		driver.WithLogger(logger.With().Str("component", "driver").Logger()),
	)
	d.Subscribe(view.render)

	go s.dailyFetch(ctx, func(day time.Time, res *fetchResult, err error) {
		if err != nil {
			logger.Warn().Err(err).Dur("retry_in", retryDelay).Msg("failed to fetch prayer times")
			return
		}
		zone.Set(day.Location())
		view.setPlace(s.placeLabel(res.Meta))
		// Rejected data is logged by the driver and shown as a stale notice.
		_ = d.SetBoundaries(res.Timings.Windows())
	})

	return d.Run(ctx)
}
