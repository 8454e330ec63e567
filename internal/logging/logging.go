// Package logging configures zerolog for the prayer-widget binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLevel is used by one-shot commands when no level is configured.
// Long-running commands default to info.
const DefaultLevel = zerolog.WarnLevel

// ParseLevel maps a level name to a zerolog level. An empty name maps to def.
func ParseLevel(name string, def zerolog.Level) (zerolog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return def, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return def, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return lvl, nil
}

// Setup configures a human-readable logger writing to w (stderr when nil)
// and installs it as the global logger.
func Setup(level zerolog.Level, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	if f, ok := w.(*os.File); !ok || f != os.Stderr {
		console.NoColor = true
	}

	logger := zerolog.New(console).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	return logger
}
