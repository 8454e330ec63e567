package display

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/smokyabdulrahman/prayer-widget/internal/window"
)

func TestBar(t *testing.T) {
	tests := []struct {
		name   string
		pct    float64
		width  int
		filled int
	}{
		{"empty", 0, 10, 0},
		{"half", 50, 10, 5},
		{"rounds down", 59.9, 10, 5},
		{"full", 100, 10, 10},
		{"clamped high", 140, 10, 10},
		{"clamped low", -3, 10, 0},
		{"scenario D", 100 * 93.0 / 174.0, 20, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bar(tt.pct, tt.width)
			if n := utf8.RuneCountInString(got); n != tt.width {
				t.Fatalf("Bar() width = %d, want %d", n, tt.width)
			}
			if n := strings.Count(got, barFilled); n != tt.filled {
				t.Errorf("Bar(%v) filled = %d, want %d (%q)", tt.pct, n, tt.filled, got)
			}
		})
	}
}

func TestBar_ZeroWidth(t *testing.T) {
	if got := Bar(50, 0); got != "" {
		t.Errorf("Bar(50, 0) = %q, want empty", got)
	}
}

func TestBarWidth(t *testing.T) {
	if got := barWidth(200); got != 40 {
		t.Errorf("barWidth(200) = %d, want 40", got)
	}
	if got := barWidth(15); got != 10 {
		t.Errorf("barWidth(15) = %d, want 10", got)
	}
	if got := barWidth(DefaultWidth); got != 40 {
		t.Errorf("barWidth(80) = %d, want 40", got)
	}
}

func TestCard(t *testing.T) {
	SetEnabled(false)

	r := window.Reading{
		Prayer:         "Dhuhr",
		Next:           "Asr",
		FillPercentage: 100 * 93.0 / 174.0,
		Remaining:      window.Remaining{Hours: 1, Minutes: 21},
		Day:            "Saturday",
		At:             time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC),
	}

	got := Card(r, "Makkah", DefaultWidth)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), got)
	}
	if lines[0] != "  Dhuhr  Saturday  Makkah" {
		t.Errorf("title = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], " 53%") {
		t.Errorf("bar line = %q, want 53%% suffix", lines[1])
	}
	if lines[2] != "  Next prayer in 1h 21m" {
		t.Errorf("subtitle = %q", lines[2])
	}
}

func TestStaleNotice(t *testing.T) {
	SetEnabled(false)

	got := StaleNotice(errors.New("malformed boundary data"))
	if got != "  ! malformed boundary data\n" {
		t.Errorf("StaleNotice() = %q", got)
	}
}

func TestTerminalWidth_NotATerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := TerminalWidth(f); got != DefaultWidth {
		t.Errorf("TerminalWidth(file) = %d, want %d", got, DefaultWidth)
	}
}
