// Package queue reads sensor readings from a managed message queue.
//
// Two backends implement Client: Amazon SQS and a Kafka consumer group.
// The Drainer pops readings off a Client and posts them to the dispatch
// loop, one receive and one delete at a time.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/luki/tempomatic/internal/sensor"
	"github.com/luki/tempomatic/internal/units"
)

// ErrEmpty is returned when a receive finds no message.
var ErrEmpty = errors.New("queue is empty")

// MaxBatch is the largest number of messages one receive call may return.
const MaxBatch = 10

// Message is one received queue entry. Receipt acknowledges it on Delete.
type Message struct {
	Body    []byte
	Receipt string
}

// Client is the queue API the drainer needs.
type Client interface {
	// Receive returns up to max messages without waiting. An empty result
	// means the queue had nothing to deliver.
	Receive(ctx context.Context, max int) ([]Message, error)
	Delete(ctx context.Context, receipt string) error
	// ApproximateCount returns the queue's own estimate of pending
	// messages; it may lag behind.
	ApproximateCount(ctx context.Context) (int, error)
	Send(ctx context.Context, body []byte) error
	Close() error
}

// Body is the JSON document carried by each queue message.
type Body struct {
	Temperature Decimal `json:"Temperature"`
	Units       string  `json:"Units"`
	Humidity    Decimal `json:"Humidity"`
	Timestamp   string  `json:"Timestamp"`
}

// Decimal accepts a JSON number or a string holding one.
type Decimal float64

func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("decimal %s: %w", b, err)
	}
	*d = Decimal(f)
	return nil
}

// NewBody builds a message body from a Celsius reading.
func NewBody(celsius, humidity float64, timestamp string) Body {
	return Body{
		Temperature: Decimal(celsius),
		Units:       units.Celsius.String(),
		Humidity:    Decimal(humidity),
		Timestamp:   timestamp,
	}
}

// Encode marshals a body.
func Encode(b Body) ([]byte, error) {
	return json.Marshal(b)
}

// Decode parses a message body into a Reading. Temperatures sent in
// Fahrenheit are converted to Celsius; a missing unit means Celsius.
func Decode(data []byte) (sensor.Reading, error) {
	var b Body
	if err := json.Unmarshal(data, &b); err != nil {
		return sensor.Reading{}, fmt.Errorf("decode queue message: %w", err)
	}
	unit := units.Celsius
	if b.Units != "" {
		u, err := units.Parse(b.Units)
		if err != nil {
			return sensor.Reading{}, fmt.Errorf("decode queue message: %w", err)
		}
		unit = u
	}
	return sensor.Reading{
		Temperature: sensor.Float(units.Canonical(float64(b.Temperature), unit)),
		Humidity:    sensor.Float(float64(b.Humidity)),
		Timestamp:   b.Timestamp,
	}, nil
}
