package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smokyabdulrahman/prayer-widget/internal/config"
	"github.com/smokyabdulrahman/prayer-widget/internal/logging"
)

// Global flags shared across all subcommands.
var (
	FlagCity       string
	FlagCountry    string
	FlagAddress    string
	FlagLatitude   float64
	FlagLongitude  float64
	FlagMethod     int
	FlagSchool     int
	FlagJSON       bool
	FlagCacheDir   string
	FlagTimeFormat string
	FlagLogLevel   string
)

// dotenvFile is read from the working directory when present.
const dotenvFile = ".env"

// loadedConfig holds the config loaded during PersistentPreRunE.
// Available to all subcommand handlers.
var loadedConfig *config.Config

// logger is configured in PersistentPreRunE.
var logger = zerolog.Nop()

// longRunning commands log at info by default; everything else at warn.
var longRunning = map[string]bool{"serve": true, "watch": true}

// NewRootCmd creates the root command for the prayer-widget CLI.
// The version parameter is set by the calling binary via ldflags.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "prayer-widget",
		Short:   "Islamic prayer times and prayer-window progress",
		Long:    "Prayer times powered by the Al Adhan API, with a live view of how far the\ncurrent prayer window has progressed.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.ApplyEnv(dotenvFile); err != nil {
				return fmt.Errorf("invalid environment: %w", err)
			}
			loadedConfig = cfg

			return setupLogger(cmd, cfg)
		},
		// Default action: show today's prayer schedule.
		RunE:          runToday,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Register global persistent flags.
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&FlagCity, "city", "", "Override city (takes precedence over config)")
	pf.StringVar(&FlagCountry, "country", "", "Override country")
	pf.StringVar(&FlagAddress, "address", "", "Override free-form address, e.g. \"Regent's Park, London\"")
	pf.Float64Var(&FlagLatitude, "latitude", 0, "Override latitude")
	pf.Float64Var(&FlagLongitude, "longitude", 0, "Override longitude")
	pf.IntVar(&FlagMethod, "method", -1, "Override calculation method (0-23)")
	pf.IntVar(&FlagSchool, "school", -1, "Override school (0=Shafi, 1=Hanafi)")
	pf.BoolVar(&FlagJSON, "json", false, "Output as JSON (where supported)")
	pf.StringVar(&FlagCacheDir, "cache-dir", "", "Cache directory (default: ~/.cache/prayer-widget/)")
	pf.StringVar(&FlagTimeFormat, "time-format", "", "Time format: 12h or 24h (overrides config)")
	pf.StringVar(&FlagLogLevel, "log-level", "", "Log level: debug, info, warn, error (default: warn, info for serve/watch)")

	// Register subcommands.
	rootCmd.AddCommand(newNextCmd())
	rootCmd.AddCommand(newProgressCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newWeekCmd())
	rootCmd.AddCommand(newMonthCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMethodsCmd())

	return rootCmd
}

// PrintVersion prints the version string in the expected format.
func PrintVersion(version string) string {
	return fmt.Sprintf("prayer-widget %s\n", version)
}

// setupLogger applies --log-level > log_level config > per-command default.
func setupLogger(cmd *cobra.Command, cfg *config.Config) error {
	def := logging.DefaultLevel
	if longRunning[cmd.Name()] {
		def = zerolog.InfoLevel
	}

	name := cfg.LogLevel
	if flagWasSet(cmd.Flags(), cmd.Root().PersistentFlags(), "log-level") {
		name = FlagLogLevel
	}

	level, err := logging.ParseLevel(name, def)
	if err != nil {
		return err
	}
	logger = logging.Setup(level, os.Stderr)
	return nil
}

// effectiveConfig returns the merged configuration values,
// applying the priority: CLI flags > environment > config file > defaults.
// It uses cobra's Changed() to detect whether a flag was explicitly set.
func effectiveConfig(cmd *cobra.Command) *config.Config {
	cfg := loadedConfig
	if cfg == nil {
		empty := config.Config{}
		cfg = &empty
	}

	defaults := config.Defaults()

	flags := cmd.Flags()
	root := cmd.Root().PersistentFlags()

	if flagWasSet(flags, root, "city") {
		cfg.City = FlagCity
	}
	if flagWasSet(flags, root, "country") {
		cfg.Country = FlagCountry
	}
	if flagWasSet(flags, root, "address") {
		cfg.Address = FlagAddress
	}
	if flagWasSet(flags, root, "latitude") {
		cfg.Latitude = FlagLatitude
	}
	if flagWasSet(flags, root, "longitude") {
		cfg.Longitude = FlagLongitude
	}
	if flagWasSet(flags, root, "method") {
		cfg.Method = &FlagMethod
	} else if cfg.Method == nil {
		cfg.Method = defaults.Method
	}
	if flagWasSet(flags, root, "school") {
		cfg.School = &FlagSchool
	} else if cfg.School == nil {
		cfg.School = defaults.School
	}
	if flagWasSet(flags, root, "cache-dir") {
		cfg.CacheDir = FlagCacheDir
	}

	// Time format: CLI flag > config > default ("24h").
	if flagWasSet(flags, root, "time-format") {
		cfg.TimeFormat = FlagTimeFormat
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = defaults.TimeFormat
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaults.ListenAddr
	}
	if cfg.MQTTTopic == "" {
		cfg.MQTTTopic = defaults.MQTTTopic
	}
	if cfg.StateBackend == "" {
		cfg.StateBackend = defaults.StateBackend
	}

	return cfg
}

// flagWasSet checks if a flag was explicitly set on either the local or persistent flag set.
func flagWasSet(local, persistent *pflag.FlagSet, name string) bool {
	if f := local.Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := persistent.Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}
