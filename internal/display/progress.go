package display

import (
	"fmt"
	"strings"

	"github.com/smokyabdulrahman/prayer-widget/internal/window"
)

const (
	barFilled = "█"
	barEmpty  = "░"
)

// Bar renders pct (clamped to 0..100) as a horizontal bar width cells wide.
func Bar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	pct = max(0, min(100, pct))
	filled := int(pct / 100 * float64(width))
	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, width-filled)
}

// barWidth sizes the bar to the terminal, leaving room for the indent and
// the percentage label.
func barWidth(termWidth int) int {
	return max(10, min(40, termWidth-10))
}

// Card renders a reading the way the widget shows it: the active prayer and
// weekday, the fill bar, and the countdown subtitle. place may be empty.
func Card(r window.Reading, place string, termWidth int) string {
	var sb strings.Builder

	title := Accent(r.Prayer) + "  " + Dim(r.Day)
	if place != "" {
		title += "  " + Gray(place)
	}
	sb.WriteString("  " + title + "\n")

	bar := Bar(r.FillPercentage, barWidth(termWidth))
	sb.WriteString(fmt.Sprintf("  %s %3d%%\n", Green(bar), int(r.FillPercentage)))
	sb.WriteString("  " + r.Remaining.Label() + "\n")

	return sb.String()
}

// StaleNotice is printed under a card when the last evaluation failed and the
// reading shown is the last good one.
func StaleNotice(err error) string {
	return "  " + Red("! "+err.Error()) + "\n"
}
