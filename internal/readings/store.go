// Package readings holds a client's live state: the current and previous
// scalar readings, the active unit system, the plot series and the rolling
// buffer.
//
// Temperatures are kept in Celsius; Fahrenheit exists only as a display
// projection, so toggling units any number of times never changes what is
// stored. The store is owned by a single event loop and is not safe for
// concurrent use.
package readings

import (
	"github.com/luki/tempomatic/internal/history"
	"github.com/luki/tempomatic/internal/sensor"
	"github.com/luki/tempomatic/internal/units"
)

// Slot names one displayed scalar.
type Slot int

const (
	SlotCurrentTemperature Slot = iota
	SlotCurrentHumidity
	SlotSensorStatus
	SlotPrevTemperature
	SlotPrevHumidity
	SlotPrevTimestamp
)

// Slots lists every slot in display order.
var Slots = []Slot{
	SlotCurrentTemperature,
	SlotCurrentHumidity,
	SlotSensorStatus,
	SlotPrevTemperature,
	SlotPrevHumidity,
	SlotPrevTimestamp,
}

func (s Slot) String() string {
	switch s {
	case SlotCurrentTemperature:
		return "currentTemp"
	case SlotCurrentHumidity:
		return "currentHumidity"
	case SlotSensorStatus:
		return "sensorStatus"
	case SlotPrevTemperature:
		return "prevTemp"
	case SlotPrevHumidity:
		return "prevHumidity"
	case SlotPrevTimestamp:
		return "timestamp"
	}
	return "unknown"
}

// Store is the client's reading state.
type Store struct {
	unit     units.System
	current  sensor.Reading
	previous sensor.Reading
	series   history.Series
	rolling  *history.Rolling
}

// New returns an empty store in Celsius with a rolling buffer of the
// standard capacity.
func New() *Store {
	return &Store{
		unit:    units.Celsius,
		rolling: history.NewRolling(history.RollingCapacity),
	}
}

// Unit returns the active unit system.
func (s *Store) Unit() units.System { return s.unit }

// ToggleUnit flips the active unit system and returns the new one.
func (s *Store) ToggleUnit() units.System {
	s.unit = s.unit.Toggle()
	return s.unit
}

// ToggleLabel is the caption of the unit toggle control.
func (s *Store) ToggleLabel() string {
	return "Convert to " + s.unit.Toggle().String()
}

func (s *Store) SetCurrentTemperature(celsius float64) {
	s.current.Temperature = sensor.Float(celsius)
}

// SetCurrentHumidity stores the humidity rounded to one decimal.
func (s *Store) SetCurrentHumidity(percent float64) {
	s.current.Humidity = sensor.Float(units.Round1(percent))
}

func (s *Store) SetSensorStatus(status string) {
	s.current.Status = status
}

func (s *Store) SetPrevTemperature(celsius float64) {
	s.previous.Temperature = sensor.Float(celsius)
}

func (s *Store) SetPrevHumidity(percent float64) {
	s.previous.Humidity = sensor.Float(units.Round1(percent))
}

// SetPrevTimestamp stores the time-of-day part of the previous reading.
func (s *Store) SetPrevTimestamp(timeOfDay string) {
	s.previous.Timestamp = timeOfDay
}

// Current returns a copy of the current reading.
func (s *Store) Current() sensor.Reading { return s.current }

// Previous returns a copy of the previous reading.
func (s *Store) Previous() sensor.Reading { return s.previous }

// ReplaceSeries swaps in a new plot series.
func (s *Store) ReplaceSeries(series history.Series) { s.series = series }

// Series returns the plot series in canonical units.
func (s *Store) Series() history.Series { return s.series }

// Append pushes a queue-delivered reading into the rolling buffer.
func (s *Store) Append(r sensor.Reading) { s.rolling.Push(r) }

// Rows renders the rolling buffer in the active unit.
func (s *Store) Rows() []history.Row { return s.rolling.Rows(s.unit) }

// RollingLen returns the number of buffered readings.
func (s *Store) RollingLen() int { return s.rolling.Len() }

// Text returns the display text of a slot in the active unit.
func (s *Store) Text(slot Slot) string {
	switch slot {
	case SlotCurrentTemperature:
		return units.FormatTemperature(s.current.Temperature, s.unit)
	case SlotCurrentHumidity:
		return units.FormatHumidity(s.current.Humidity)
	case SlotSensorStatus:
		if s.current.Status == "" {
			return units.Placeholder
		}
		return s.current.Status
	case SlotPrevTemperature:
		return units.FormatTemperature(s.previous.Temperature, s.unit)
	case SlotPrevHumidity:
		return units.FormatHumidity(s.previous.Humidity)
	case SlotPrevTimestamp:
		if s.previous.Timestamp == "" {
			return units.Placeholder
		}
		return s.previous.Timestamp
	}
	return ""
}
