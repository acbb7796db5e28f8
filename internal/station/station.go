// Package station is the sensor logger: on every tick it reads the sensor,
// stores the reading, publishes it and raises alarms over the limits.
package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/luki/tempomatic/internal/config"
	"github.com/luki/tempomatic/internal/publish"
	"github.com/luki/tempomatic/internal/sensor"
	"github.com/luki/tempomatic/internal/store"
)

const stampLayout = "01/02/06 15:04:05"

// Store persists readings.
type Store interface {
	Insert(ctx context.Context, temperature, humidity float64, at time.Time) (store.Row, error)
}

// Publisher sends payloads to a named topic.
type Publisher interface {
	Publish(ctx context.Context, name string, p publish.Payload) error
}

// Station polls one sensor. Store and Publisher are optional.
type Station struct {
	sensor sensor.Source
	store  Store
	pub    Publisher
	cfg    config.StationConfig
	logger *slog.Logger
}

// New creates a station. Pass nil for st or pub to skip that step.
func New(src sensor.Source, st Store, pub Publisher, cfg config.StationConfig, logger *slog.Logger) *Station {
	return &Station{sensor: src, store: st, pub: pub, cfg: cfg, logger: logger}
}

// Run ticks every cfg.Interval until ctx is done. Tick errors are logged,
// not fatal.
func (s *Station) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("station started", "interval", s.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("station stopped")
			return nil
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Warn("tick failed", "err", err)
			}
		}
	}
}

// Tick performs one read-store-publish-alarm cycle. A sensor that is not
// ready is not an error; the cycle is skipped.
func (s *Station) Tick(ctx context.Context) error {
	res := s.sensor.Read()
	if !res.OK() {
		s.logger.Debug("sensor not ready", "status", res.Status)
		return nil
	}
	ts := res.Time.Format(stampLayout)
	s.logger.Debug("reading", "temperature", res.Temperature, "humidity", res.Humidity)

	var errs []error
	if s.store != nil {
		if _, err := s.store.Insert(ctx, res.Temperature, res.Humidity, res.Time); err != nil {
			errs = append(errs, err)
		}
	}
	if s.pub == nil {
		return errors.Join(errs...)
	}

	out := []publish.Payload{publish.Reading(res.Temperature, res.Humidity, ts)}
	out = append(out, s.Alarms(res.Temperature, res.Humidity, ts)...)
	for _, p := range out {
		if err := s.pub.Publish(ctx, s.cfg.Topic, p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Command, err))
		}
	}
	return errors.Join(errs...)
}

// Alarms returns the alarm payloads for a reading. Limits are exclusive:
// a value equal to the limit raises nothing.
func (s *Station) Alarms(celsius, humidity float64, ts string) []publish.Payload {
	var out []publish.Payload
	if celsius > s.cfg.AlarmTemperatureHigh {
		s.logger.Warn("temperature alarm", "temperature", celsius, "limit", s.cfg.AlarmTemperatureHigh)
		out = append(out, publish.TemperatureAlarm(celsius, s.cfg.AlarmTemperatureHigh, ts))
	}
	if humidity > s.cfg.AlarmHumidityHigh {
		s.logger.Warn("humidity alarm", "humidity", humidity, "limit", s.cfg.AlarmHumidityHigh)
		out = append(out, publish.HumidityAlarm(humidity, s.cfg.AlarmHumidityHigh, ts))
	}
	return out
}
