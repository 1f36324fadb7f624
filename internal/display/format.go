// Package display renders poll results as short text lines for the board's
// character display.
package display

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3/physic"
)

// DefaultWidth is the character width of the board's OLED.
const DefaultWidth = 16

// Unit is a temperature unit
type Unit string

const (
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
)

// ParseUnit accepts C or F in either case
func ParseUnit(s string) (Unit, error) {
	switch strings.ToUpper(s) {
	case "", "C":
		return Celsius, nil
	case "F":
		return Fahrenheit, nil
	}
	return "", fmt.Errorf("unknown temperature unit %q", s)
}

// FormatTime returns HH:MM
func FormatTime(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// FormatDate returns DD/MM/YYYY, or DD/MM when year is zero
func FormatDate(day, month, year int) string {
	if year == 0 {
		return fmt.Sprintf("%02d/%02d", day, month)
	}
	return fmt.Sprintf("%02d/%02d/%d", day, month, year)
}

// FormatTemperature renders t in the requested unit
func FormatTemperature(t physic.Temperature, unit Unit) string {
	if unit == Fahrenheit {
		return fmt.Sprintf("%.1f°F", t.Fahrenheit())
	}
	return fmt.Sprintf("%.1f°C", t.Celsius())
}

// FormatPressure renders pascals, switching to kPa above 1000 Pa
func FormatPressure(p physic.Pressure) string {
	pa := float64(p) / float64(physic.Pascal)
	if pa > 1000 {
		return fmt.Sprintf("%.1fkPa", pa/1000)
	}
	return fmt.Sprintf("%.0fPa", pa)
}

// FormatHumidity renders relative humidity with one decimal
func FormatHumidity(h physic.RelativeHumidity) string {
	return fmt.Sprintf("%.1f%%", float64(h)/float64(physic.PercentRH))
}

// Truncate shortens text to limit characters, ending in "..." when cut
func Truncate(text string, limit int) string {
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	if limit <= 3 {
		return string(r[:max(limit, 0)])
	}
	return string(r[:limit-3]) + "..."
}
