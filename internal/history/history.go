// Package history holds the sample collections a client keeps: the plot
// series, replaced wholesale on every plot reply, and the rolling buffer of
// queue-delivered readings.
package history

import (
	"fmt"
	"math"

	"github.com/luki/tempomatic/internal/sensor"
	"github.com/luki/tempomatic/internal/units"
)

// RollingCapacity is the size of the queue-backed reading window.
const RollingCapacity = 20

// Series is three parallel sequences; index i describes one observation.
// Temperatures are Celsius.
type Series struct {
	Times        []string
	Temperatures []float64
	Humidities   []float64
}

// NewSeries copies the three sequences into a Series. They must have the
// same length.
func NewSeries(times []string, temps, hums []float64) (Series, error) {
	if len(times) != len(temps) || len(temps) != len(hums) {
		return Series{}, fmt.Errorf("series length mismatch: %d times, %d temperatures, %d humidities",
			len(times), len(temps), len(hums))
	}
	s := Series{
		Times:        make([]string, len(times)),
		Temperatures: make([]float64, len(temps)),
		Humidities:   make([]float64, len(hums)),
	}
	copy(s.Times, times)
	copy(s.Temperatures, temps)
	copy(s.Humidities, hums)
	return s, nil
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Times) }

// Empty reports whether the series has no observations.
func (s Series) Empty() bool { return len(s.Times) == 0 }

// TemperaturesIn projects the temperatures into u, one decimal each.
func (s Series) TemperaturesIn(u units.System) []float64 {
	out := make([]float64, len(s.Temperatures))
	for i, c := range s.Temperatures {
		out[i] = units.Project(c, u)
	}
	return out
}

// RoundedHumidities returns the humidities rounded to one decimal.
func (s Series) RoundedHumidities() []float64 {
	out := make([]float64, len(s.Humidities))
	for i, h := range s.Humidities {
		out[i] = units.Round1(h)
	}
	return out
}

// Bounds returns the min and max of vals, or (0, 0) when empty.
func Bounds(vals []float64) (lo, hi float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	lo, hi = math.MaxFloat64, -math.MaxFloat64
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Rolling is a fixed-capacity FIFO window of readings: new readings go to
// the tail and, once full, the head is evicted first.
type Rolling struct {
	Readings []sensor.Reading
	Max      int
}

// NewRolling creates an empty window with the given capacity.
func NewRolling(capacity int) *Rolling {
	return &Rolling{
		Readings: make([]sensor.Reading, 0, capacity),
		Max:      capacity,
	}
}

// Push appends r, evicting the oldest reading when the window is full.
func (b *Rolling) Push(r sensor.Reading) {
	if len(b.Readings) >= b.Max {
		copy(b.Readings, b.Readings[1:])
		b.Readings[len(b.Readings)-1] = r
		return
	}
	b.Readings = append(b.Readings, r)
}

// Len returns the number of readings held.
func (b *Rolling) Len() int { return len(b.Readings) }

// Head returns the oldest reading.
func (b *Rolling) Head() (sensor.Reading, bool) {
	if len(b.Readings) == 0 {
		return sensor.Reading{}, false
	}
	return b.Readings[0], true
}

// Tail returns the newest reading.
func (b *Rolling) Tail() (sensor.Reading, bool) {
	if len(b.Readings) == 0 {
		return sensor.Reading{}, false
	}
	return b.Readings[len(b.Readings)-1], true
}

// Row is one rendered table row of the rolling window.
type Row struct {
	Number      int // 1-based
	Temperature string
	Humidity    string
	Timestamp   string
}

// Rows renders every reading with temperatures projected into u.
func (b *Rolling) Rows(u units.System) []Row {
	rows := make([]Row, len(b.Readings))
	for i, r := range b.Readings {
		rows[i] = Row{
			Number:      i + 1,
			Temperature: units.FormatTemperature(r.Temperature, u),
			Humidity:    units.FormatHumidity(r.Humidity),
			Timestamp:   r.Timestamp,
		}
	}
	return rows
}
