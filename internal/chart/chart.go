// Package chart draws the temperature and humidity history as terminal
// sparklines with a time axis underneath.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/tempomatic/internal/dispatch"
	"github.com/luki/tempomatic/internal/units"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

var (
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	tickStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	axisStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// Range is a fixed vertical axis.
type Range struct {
	Min, Max float64
}

// HumidityRange is the axis for relative humidity.
var HumidityRange = Range{Min: 0, Max: 100}

// TemperatureRange is the sensor's span (-40 to 80 °C) expressed in u.
func TemperatureRange(u units.System) Range {
	if u == units.Fahrenheit {
		return Range{Min: -40, Max: 176}
	}
	return Range{Min: -40, Max: 80}
}

func (r Range) norm(v float64) float64 {
	span := r.Max - r.Min
	if span <= 0 {
		span = 1
	}
	return math.Max(0, math.Min(1, (v-r.Min)/span))
}

// Level returns the color for v against an alarm limit in the same unit:
// red over the limit, yellow within 15% of it, green otherwise. A zero
// limit disables coloring.
func Level(v, limit float64) lipgloss.Color {
	switch {
	case limit == 0:
		return lipgloss.Color("75") // blue
	case v > limit:
		return lipgloss.Color("196") // red
	case v >= limit*0.85:
		return lipgloss.Color("220") // yellow
	default:
		return lipgloss.Color("78") // soft green
	}
}

// cellWidth is the number of columns each sample occupies.
func cellWidth(n, width int) int {
	if n == 0 {
		return 0
	}
	if c := width / n; c > 1 {
		return c
	}
	return 1
}

// RenderSparkline draws values left to right, stretched to width. When
// there are more values than columns only the newest are drawn.
func RenderSparkline(values []float64, width int, r Range, limit float64) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return dimStyle.Render(strings.Repeat("╌", width))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	cell := cellWidth(len(values), width)
	var sb strings.Builder
	for _, v := range values {
		idx := int(r.norm(v) * 7)
		if idx > 7 {
			idx = 7
		}
		style := lipgloss.NewStyle().Foreground(Level(v, limit))
		if limit != 0 && v > limit {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(strings.Repeat(string(sparkBlocks[idx]), cell)))
	}
	if pad := width - cell*len(values); pad > 0 {
		sb.WriteString(dimStyle.Render(strings.Repeat("╌", pad)))
	}
	return sb.String()
}

// RenderTimeline places time labels under the sparkline columns. Labels
// that would overlap the previous one are skipped.
func RenderTimeline(times []string, width int) string {
	if len(times) == 0 || width <= 0 {
		return ""
	}
	if len(times) > width {
		times = times[len(times)-width:]
	}

	line := []rune(strings.Repeat(" ", width))
	cell := cellWidth(len(times), width)
	lastEnd := -1
	for i, t := range times {
		start := i * cell
		label := []rune(t)
		end := start + len(label)
		if end > width || start <= lastEnd {
			continue
		}
		copy(line[start:], label)
		lastEnd = end
	}
	return tickStyle.Render(string(line))
}

// RenderAxis labels the bottom and top of r.
func RenderAxis(r Range, symbol string, width int) string {
	lo := fmt.Sprintf("%g %s", r.Min, symbol)
	hi := fmt.Sprintf("%g %s", r.Max, symbol)
	gap := width - len([]rune(lo)) - len([]rune(hi))
	if gap < 1 {
		gap = 1
	}
	return axisStyle.Render(lo + strings.Repeat("·", gap) + hi)
}

// Panel is one titled chart.
type Panel struct {
	Title  string
	Axis   string
	Symbol string
	Values []float64
	Times  []string
	Range  Range
	Limit  float64
}

// Render draws the panel width columns wide, border included.
func (p Panel) Render(width int) string {
	inner := width - 4
	if inner < 8 {
		inner = 8
	}
	last := units.Placeholder
	if n := len(p.Values); n > 0 {
		last = fmt.Sprintf("%.1f", p.Values[n-1])
	}
	body := strings.Join([]string{
		titleStyle.Render(p.Title) + axisStyle.Render(fmt.Sprintf("  %s  last %s %s", p.Axis, last, p.Symbol)),
		RenderSparkline(p.Values, inner, p.Range, p.Limit),
		RenderTimeline(p.Times, inner),
		RenderAxis(p.Range, p.Symbol, inner),
	}, "\n")
	return panelStyle.Width(inner + 2).Render(body)
}

// Limits are the alarm thresholds used for coloring, temperature in
// Celsius.
type Limits struct {
	TemperatureHigh float64
	HumidityHigh    float64
}

// Panels builds the temperature and humidity charts for a plot.
func Panels(p dispatch.Plot, lim Limits) (temp, hum Panel) {
	tempLimit := lim.TemperatureHigh
	if tempLimit != 0 {
		tempLimit = units.Project(tempLimit, p.Unit)
	}
	temp = Panel{
		Title:  "Temp vs Time",
		Axis:   "Temperature (" + p.Unit.Symbol() + ")",
		Symbol: p.Unit.Symbol(),
		Values: p.Temperatures,
		Times:  p.Times,
		Range:  TemperatureRange(p.Unit),
		Limit:  tempLimit,
	}
	hum = Panel{
		Title:  "Humidity vs Time",
		Axis:   "Humidity (%)",
		Symbol: "%",
		Values: p.Humidities,
		Times:  p.Times,
		Range:  HumidityRange,
		Limit:  lim.HumidityHigh,
	}
	return temp, hum
}

// Render draws both charts stacked.
func Render(p dispatch.Plot, lim Limits, width int) string {
	temp, hum := Panels(p, lim)
	return lipgloss.JoinVertical(lipgloss.Left, temp.Render(width), hum.Render(width))
}
