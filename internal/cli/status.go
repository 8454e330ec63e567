package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-widget/internal/config"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

// StatusOptions controls Status.
type StatusOptions struct {
	Format string    // any FormatReading mode or template
	At     time.Time // zero means now
	Logger zerolog.Logger
}

// Status resolves the location in cfg, fetches that day's timings and
// formats the active prayer window on one line. It backs status-bar
// binaries and replaces the package logger with opts.Logger, so it is not
// meant to run alongside the cobra commands.
func Status(ctx context.Context, cfg *config.Config, opts StatusOptions) (string, error) {
	logger = opts.Logger

	s, err := newSession(ctx, cfg)
	if err != nil {
		return "", err
	}

	at := opts.At
	if at.IsZero() {
		at = time.Now()
	}
	result, at, err := s.today(ctx, at)
	if err != nil {
		return "", err
	}

	reading, err := readingFor(result, at)
	if err != nil {
		return "", err
	}
	return prayer.FormatReading(reading, opts.Format, s.timeFmt), nil
}
