package chart

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/tempomatic/internal/dispatch"
	"github.com/luki/tempomatic/internal/units"
)

func TestTemperatureRange(t *testing.T) {
	if r := TemperatureRange(units.Celsius); r != (Range{-40, 80}) {
		t.Errorf("celsius: %+v", r)
	}
	if r := TemperatureRange(units.Fahrenheit); r != (Range{-40, 176}) {
		t.Errorf("fahrenheit: %+v", r)
	}
}

func TestSparkline(t *testing.T) {
	values := []float64{-40, 0, 20, 40, 80}
	result := RenderSparkline(values, 20, TemperatureRange(units.Celsius), 28)
	if len(result) == 0 {
		t.Fatal("sparkline should not be empty")
	}
	if w := lipgloss.Width(result); w != 20 {
		t.Errorf("width: got %d, want 20", w)
	}
	if !strings.Contains(result, string(sparkBlocks[0])) || !strings.Contains(result, string(sparkBlocks[7])) {
		t.Errorf("expected both extreme blocks: %s", result)
	}
	t.Logf("Sparkline: %s", result)
}

func TestSparklineEmpty(t *testing.T) {
	result := RenderSparkline(nil, 10, HumidityRange, 0)
	if lipgloss.Width(result) != 10 || !strings.Contains(result, "╌") {
		t.Errorf("got %q", result)
	}
}

func TestTimelineSkipsOverlaps(t *testing.T) {
	times := []string{"04:16:01", "04:16:02", "04:16:03", "04:16:04"}
	line := RenderTimeline(times, 20)
	if !strings.Contains(line, "04:16:01") {
		t.Errorf("first label missing: %q", line)
	}
	if strings.Contains(line, "04:16:02") {
		t.Errorf("overlapping label should be skipped: %q", line)
	}
	if !strings.Contains(line, "04:16:03") {
		t.Errorf("third label missing: %q", line)
	}
}

func TestLevel(t *testing.T) {
	if Level(30, 28) != lipgloss.Color("196") {
		t.Error("over limit should be red")
	}
	if Level(25, 28) != lipgloss.Color("220") {
		t.Error("near limit should be yellow")
	}
	if Level(10, 28) != lipgloss.Color("78") {
		t.Error("far from limit should be green")
	}
}

func TestPanelsFollowUnit(t *testing.T) {
	p := dispatch.Plot{
		Unit:         units.Fahrenheit,
		Times:        []string{"10:00:00", "10:01:00"},
		Temperatures: []float64{68.0, 69.8},
		Humidities:   []float64{50, 55},
	}
	temp, hum := Panels(p, Limits{TemperatureHigh: 28, HumidityHigh: 80})
	if temp.Axis != "Temperature (°F)" || temp.Range.Max != 176 {
		t.Errorf("temperature panel: %+v", temp)
	}
	if temp.Limit != 82.4 {
		t.Errorf("limit should be projected to °F, got %v", temp.Limit)
	}
	if hum.Title != "Humidity vs Time" || hum.Range != HumidityRange {
		t.Errorf("humidity panel: %+v", hum)
	}

	out := Render(p, Limits{}, 60)
	if !strings.Contains(out, "Temp vs Time") || !strings.Contains(out, "last 69.8 °F") {
		t.Errorf("render: %s", out)
	}
}
