// Package sensor provides the temperature/humidity reading model and a
// DHT22-style sensor source with its status state machine.
package sensor

// Reading is one point-in-time observation. Temperature is always stored
// in Celsius and humidity in percent; nil means the field was not sent.
type Reading struct {
	Temperature *float64
	Humidity    *float64
	Status      string
	Timestamp   string
}

// Float returns a pointer to v, for building readings inline.
func Float(v float64) *float64 {
	return &v
}

// HasTemperature reports whether the reading carries a temperature.
func (r Reading) HasTemperature() bool { return r.Temperature != nil }

// HasHumidity reports whether the reading carries a humidity.
func (r Reading) HasHumidity() bool { return r.Humidity != nil }
