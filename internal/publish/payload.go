// Package publish carries station readings and alarms over MQTT.
//
// Every message is a JSON envelope {"Payload": {...}} whose Command field
// says what it is: a Reading, a Temperature Alarm or a Humidity Alarm.
package publish

import (
	"encoding/json"
	"fmt"

	"github.com/luki/tempomatic/internal/units"
)

const (
	CommandReading          = "Reading"
	CommandTemperatureAlarm = "Temperature Alarm"
	CommandHumidityAlarm    = "Humidity Alarm"
)

// Payload is the body of one station message. Trigger is the limit that
// raised an alarm.
type Payload struct {
	Command     string   `json:"Command"`
	Temperature *float64 `json:"Temperature,omitempty"`
	Units       string   `json:"Units,omitempty"`
	Humidity    *float64 `json:"Humidity,omitempty"`
	Timestamp   string   `json:"Timestamp,omitempty"`
	Trigger     string   `json:"Trigger,omitempty"`
}

type envelope struct {
	Payload Payload `json:"Payload"`
}

// Reading builds a Reading payload in Celsius.
func Reading(celsius, humidity float64, timestamp string) Payload {
	return Payload{
		Command:     CommandReading,
		Temperature: &celsius,
		Units:       units.Celsius.String(),
		Humidity:    &humidity,
		Timestamp:   timestamp,
	}
}

// TemperatureAlarm reports celsius over limit.
func TemperatureAlarm(celsius, limit float64, timestamp string) Payload {
	return Payload{
		Command:     CommandTemperatureAlarm,
		Temperature: &celsius,
		Units:       units.Celsius.String(),
		Timestamp:   timestamp,
		Trigger:     fmt.Sprintf("%g", limit),
	}
}

// HumidityAlarm reports humidity over limit.
func HumidityAlarm(humidity, limit float64, timestamp string) Payload {
	return Payload{
		Command:   CommandHumidityAlarm,
		Humidity:  &humidity,
		Timestamp: timestamp,
		Trigger:   fmt.Sprintf("%g", limit),
	}
}

// IsAlarm reports whether the payload is one of the alarm commands.
func (p Payload) IsAlarm() bool {
	return p.Command == CommandTemperatureAlarm || p.Command == CommandHumidityAlarm
}

// Describe renders an alarm as a human readable warning.
func (p Payload) Describe() string {
	switch p.Command {
	case CommandTemperatureAlarm:
		return fmt.Sprintf("Warning! Temperature is over %s degrees %s. It is at %s degrees %s!",
			p.Trigger, p.Units, decimal(p.Temperature), p.Units)
	case CommandHumidityAlarm:
		return fmt.Sprintf("Warning! Humidity is over %s%%. It is at %s%%!",
			p.Trigger, decimal(p.Humidity))
	}
	return p.Command
}

func decimal(v *float64) string {
	if v == nil {
		return units.Placeholder
	}
	return fmt.Sprintf("%.1f", *v)
}

// Encode wraps p in its envelope.
func Encode(p Payload) ([]byte, error) {
	return json.Marshal(envelope{Payload: p})
}

// Decode unwraps an envelope. A message without a Command is an error.
func Decode(data []byte) (Payload, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	if env.Payload.Command == "" {
		return Payload{}, fmt.Errorf("decode payload: missing Command")
	}
	return env.Payload, nil
}
