// Command tmux-prayer-widget prints the active prayer window on one line for
// a tmux status bar:
//
//	set -g status-right '#(tmux-prayer-widget --city Riyadh --country SA)'
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/smokyabdulrahman/prayer-widget/internal/cli"
	"github.com/smokyabdulrahman/prayer-widget/internal/config"
	"github.com/smokyabdulrahman/prayer-widget/internal/logging"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0"
var version = "dev"

const defaultFormat = "{{.Current}} {{.Percent}}% {{.Remaining}}"

// fetchTimeout bounds a single status refresh so a slow API never stalls tmux.
const fetchTimeout = 10 * time.Second

// configKeys maps flag names to the config keys they override.
var configKeys = map[string]string{
	"latitude":    "latitude",
	"longitude":   "longitude",
	"city":        "city",
	"country":     "country",
	"address":     "address",
	"method":      "method",
	"school":      "school",
	"time-format": "time_format",
	"cache-dir":   "cache_dir",
	"log-level":   "log_level",
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("tmux-prayer-widget", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	flags.Float64("latitude", 0, "Latitude for prayer time calculation")
	flags.Float64("longitude", 0, "Longitude for prayer time calculation")
	flags.String("city", "", "City name (alternative to coordinates)")
	flags.String("country", "", "Country code (used with --city)")
	flags.String("address", "", "Free-form address, e.g. \"Regent's Park, London\"")
	flags.Int("method", -1, "Calculation method ID (0-23). -1 for API default.")
	flags.Int("school", -1, "Juristic school: 0=Shafi, 1=Hanafi. -1 for API default.")
	flags.String("time-format", "24h", "Time format: 12h or 24h")
	flags.String("cache-dir", "", "Cache directory (default: ~/.cache/prayer-widget/)")
	flags.String("log-level", "", "Log level for diagnostics on stderr (default: warn)")

	format := flags.String("format", defaultFormat, "Display format: progress, current-and-remaining, remaining-label, any 'next' mode, or a Go template. Template fields: .Current, .CurrentShort, .Percent, .Name, .ShortName, .Time, .Remaining, .Hours, .Minutes")
	showVersion := flags.Bool("version", false, "Print version and exit")
	listMethods := flags.Bool("list-methods", false, "Print supported calculation methods and exit")

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "tmux-prayer-widget %s\n", version)
		return 0
	}
	if *listMethods {
		printMethods(stdout)
		return 0
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	level, err := logging.ParseLevel(cfg.LogLevel, logging.DefaultLevel)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	logger := logging.Setup(level, stderr)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	line, err := cli.Status(ctx, cfg, cli.StatusOptions{Format: *format, Logger: logger})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprint(stdout, line)
	return 0
}

// loadConfig layers the config file, PRAYER_WIDGET_* variables and flags,
// later sources winning.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(".env"); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	var setErr error
	flags.Visit(func(f *pflag.Flag) {
		key, ok := configKeys[f.Name]
		if !ok || setErr != nil {
			return
		}
		value := f.Value.String()
		if (key == "method" || key == "school") && value == "-1" {
			if key == "method" {
				cfg.Method = nil
			} else {
				cfg.School = nil
			}
			return
		}
		if err := cfg.Set(key, value); err != nil {
			setErr = fmt.Errorf("--%s: %w", f.Name, err)
		}
	})
	if setErr != nil {
		return nil, setErr
	}
	return cfg, nil
}

func printMethods(w io.Writer) {
	fmt.Fprintln(w, "Supported calculation methods:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-4s %s\n", "ID", "Name")
	fmt.Fprintf(w, "  %-4s %s\n", "──", "────")
	for _, m := range cli.CalculationMethods {
		fmt.Fprintf(w, "  %-4d %s\n", m.ID, m.Name)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use --method <ID> to select a calculation method.")
	fmt.Fprintln(w, "If omitted, the API picks a default based on your location.")
}
