package readings

import (
	"testing"

	"github.com/luki/tempomatic/internal/history"
	"github.com/luki/tempomatic/internal/sensor"
	"github.com/luki/tempomatic/internal/units"
)

func TestToggleWithoutReadingShowsPlaceholder(t *testing.T) {
	s := New()
	if got := s.ToggleUnit(); got != units.Fahrenheit {
		t.Fatalf("ToggleUnit: got %v", got)
	}
	if got := s.Text(SlotCurrentTemperature); got != "- °F" {
		t.Errorf("current temperature: got %q, want %q", got, "- °F")
	}
	if got := s.Text(SlotPrevTemperature); got != "- °F" {
		t.Errorf("previous temperature: got %q", got)
	}
	if got := s.ToggleLabel(); got != "Convert to Celsius" {
		t.Errorf("label: got %q", got)
	}
}

func TestToggleIsLossless(t *testing.T) {
	s := New()
	s.SetCurrentTemperature(21.37)
	for i := 0; i < 101; i++ {
		s.ToggleUnit()
	}
	if s.Unit() != units.Fahrenheit {
		t.Fatalf("odd number of toggles should end in Fahrenheit")
	}
	if got := s.Text(SlotCurrentTemperature); got != "70.5 °F" {
		t.Errorf("got %q, want %q", got, "70.5 °F")
	}
	s.ToggleUnit()
	if got := s.Text(SlotCurrentTemperature); got != "21.4 °C" {
		t.Errorf("got %q, want %q", got, "21.4 °C")
	}
	if *s.Current().Temperature != 21.37 {
		t.Errorf("stored value changed: %v", *s.Current().Temperature)
	}
}

func TestHumidityNeverConverted(t *testing.T) {
	s := New()
	s.SetCurrentHumidity(48.26)
	s.SetPrevHumidity(40)
	s.ToggleUnit()
	if got := s.Text(SlotCurrentHumidity); got != "48.3 %" {
		t.Errorf("current humidity: got %q", got)
	}
	if got := s.Text(SlotPrevHumidity); got != "40.0 %" {
		t.Errorf("previous humidity: got %q", got)
	}
}

func TestRowsFollowUnit(t *testing.T) {
	s := New()
	s.Append(sensor.Reading{Temperature: sensor.Float(0), Humidity: sensor.Float(30)})
	if got := s.Rows()[0].Temperature; got != "0.0 °C" {
		t.Errorf("celsius row: got %q", got)
	}
	s.ToggleUnit()
	if got := s.Rows()[0].Temperature; got != "32.0 °F" {
		t.Errorf("fahrenheit row: got %q", got)
	}
	if s.RollingLen() != 1 {
		t.Errorf("RollingLen: got %d", s.RollingLen())
	}
}

func TestStatusAndTimestampPlaceholders(t *testing.T) {
	s := New()
	if got := s.Text(SlotSensorStatus); got != units.Placeholder {
		t.Errorf("status: got %q", got)
	}
	s.SetSensorStatus("Busy")
	s.SetPrevTimestamp("11:11:52")
	if s.Text(SlotSensorStatus) != "Busy" || s.Text(SlotPrevTimestamp) != "11:11:52" {
		t.Errorf("got %q / %q", s.Text(SlotSensorStatus), s.Text(SlotPrevTimestamp))
	}

	series, _ := history.NewSeries([]string{"a"}, []float64{1}, []float64{2})
	s.ReplaceSeries(series)
	if s.Series().Len() != 1 {
		t.Error("series not replaced")
	}
}
