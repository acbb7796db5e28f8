// Package units converts temperatures between Celsius and Fahrenheit and
// formats readings for display with one decimal digit.
package units

import (
	"fmt"
	"math"
)

// System is the active temperature unit of a client session.
type System int

const (
	Celsius System = iota
	Fahrenheit
)

// Placeholder is shown in place of a value that has not been received.
const Placeholder = "-"

// Symbol returns the display suffix for the unit, e.g. "°C".
func (s System) Symbol() string {
	if s == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// Letter returns "C" or "F".
func (s System) Letter() string {
	if s == Fahrenheit {
		return "F"
	}
	return "C"
}

// Toggle returns the other unit.
func (s System) Toggle() System {
	if s == Fahrenheit {
		return Celsius
	}
	return Fahrenheit
}

func (s System) String() string {
	if s == Fahrenheit {
		return "Fahrenheit"
	}
	return "Celsius"
}

// Parse maps "C", "Celsius", "F", "Fahrenheit" (any case) to a System.
func Parse(s string) (System, error) {
	switch s {
	case "C", "c", "Celsius", "celsius", "CELSIUS":
		return Celsius, nil
	case "F", "f", "Fahrenheit", "fahrenheit", "FAHRENHEIT":
		return Fahrenheit, nil
	}
	return Celsius, fmt.Errorf("unknown temperature unit %q", s)
}

func ToFahrenheit(celsius float64) float64 {
	return celsius*1.8 + 32
}

func ToCelsius(fahrenheit float64) float64 {
	return (fahrenheit - 32) / 1.8
}

// Round1 rounds half away from zero to one decimal digit.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Project converts a canonical Celsius value into the given unit and rounds
// it for display.
func Project(celsius float64, s System) float64 {
	if s == Fahrenheit {
		return Round1(ToFahrenheit(celsius))
	}
	return Round1(celsius)
}

// Canonical converts a value expressed in unit s back to Celsius without
// rounding.
func Canonical(v float64, s System) float64 {
	if s == Fahrenheit {
		return ToCelsius(v)
	}
	return v
}

// FormatTemperature renders a Celsius value in unit s, e.g. "21.4 °C".
// A nil value renders the placeholder with the unit symbol.
func FormatTemperature(celsius *float64, s System) string {
	if celsius == nil {
		return Placeholder + " " + s.Symbol()
	}
	return fmt.Sprintf("%.1f %s", Project(*celsius, s), s.Symbol())
}

// FormatHumidity renders a relative humidity, e.g. "48.0 %".
func FormatHumidity(percent *float64) string {
	if percent == nil {
		return Placeholder + " %"
	}
	return fmt.Sprintf("%.1f %%", Round1(*percent))
}
