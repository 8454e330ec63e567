package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.WarnLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{" error ", zerolog.ErrorLevel, false},
		{"loud", zerolog.WarnLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in, zerolog.WarnLevel)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetup_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(zerolog.WarnLevel, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("cache disabled")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered, got:\n%s", out)
	}
	if !strings.Contains(out, "cache disabled") {
		t.Errorf("warn message missing, got:\n%s", out)
	}
}
