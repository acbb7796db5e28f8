// Package bridge forwards station readings from MQTT onto the queue the
// queue-backed client drains.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luki/tempomatic/internal/publish"
	"github.com/luki/tempomatic/internal/queue"
)

// Subscriber delivers MQTT payloads.
type Subscriber interface {
	Subscribe(ctx context.Context, filter string, h publish.Handler) error
}

// Sender enqueues a message body.
type Sender interface {
	Send(ctx context.Context, body []byte) error
}

// ErrIncomplete is returned for a Reading without temperature or humidity.
var ErrIncomplete = errors.New("reading without temperature or humidity")

// Bridge routes payloads by their Command.
type Bridge struct {
	sub    Subscriber
	out    Sender
	logger *slog.Logger
}

func New(sub Subscriber, out Sender, logger *slog.Logger) *Bridge {
	return &Bridge{sub: sub, out: out, logger: logger}
}

// Run subscribes to every topic under the prefix and blocks until ctx is
// done.
func (b *Bridge) Run(ctx context.Context) error {
	err := b.sub.Subscribe(ctx, "#", func(topic string, p publish.Payload) {
		if err := b.Handle(ctx, p); err != nil {
			b.logger.Warn("forward failed", "topic", topic, "command", p.Command, "err", err)
		}
	})
	if err != nil {
		return err
	}
	b.logger.Info("bridge running")
	<-ctx.Done()
	return nil
}

// Handle enqueues Reading payloads and logs alarms. Other commands are
// ignored.
func (b *Bridge) Handle(ctx context.Context, p publish.Payload) error {
	switch {
	case p.Command == publish.CommandReading:
		if p.Temperature == nil || p.Humidity == nil {
			return ErrIncomplete
		}
		body := queue.Body{
			Temperature: queue.Decimal(*p.Temperature),
			Units:       p.Units,
			Humidity:    queue.Decimal(*p.Humidity),
			Timestamp:   p.Timestamp,
		}
		data, err := queue.Encode(body)
		if err != nil {
			return err
		}
		if err := b.out.Send(ctx, data); err != nil {
			return fmt.Errorf("enqueue: %w", err)
		}
		b.logger.Debug("reading enqueued", "timestamp", p.Timestamp)
	case p.IsAlarm():
		b.logger.Warn(p.Describe(), "command", p.Command, "timestamp", p.Timestamp)
	default:
		b.logger.Debug("ignoring payload", "command", p.Command)
	}
	return nil
}
