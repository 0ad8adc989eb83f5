package hud

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder is shown for values that are not known.
const Placeholder = "—"

var printer = message.NewPrinter(language.English)

// FormatInt rounds n and groups thousands with commas.
func FormatInt(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Placeholder
	}
	return printer.Sprintf("%d", int64(math.Round(n)))
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// DurationWords renders seconds as "1 hour, 2 minutes, 3 seconds", rounding
// up and omitting zero components.
func DurationWords(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return Placeholder
	}
	s := int(math.Max(0, math.Ceil(seconds)))
	if s == 0 {
		return "0 seconds"
	}
	h := s / 3600
	s %= 3600
	m := s / 60
	s %= 60

	var parts []string
	if h > 0 {
		parts = append(parts, plural(h, "hour"))
	}
	if m > 0 {
		parts = append(parts, plural(m, "minute"))
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, plural(s, "second"))
	}
	return strings.Join(parts, ", ")
}

// FormatSpeed renders a speed in the preferred unit, grouping thousands
// once the rounded value reaches four digits.
func FormatSpeed(kmh, mph float64, unit string) string {
	if math.IsNaN(kmh) || math.IsNaN(mph) {
		return Placeholder
	}
	if unit == UnitKmh {
		return FormatInt(kmh) + " km/h"
	}
	return FormatInt(mph) + " mph"
}
