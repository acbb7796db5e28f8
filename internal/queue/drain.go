package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/luki/tempomatic/internal/dispatch"
)

// Drainer moves readings from a Client into the dispatch loop.
type Drainer struct {
	client Client
	events chan<- dispatch.Event
	logger *slog.Logger
}

// NewDrainer creates a drainer posting to events.
func NewDrainer(client Client, events chan<- dispatch.Event, logger *slog.Logger) *Drainer {
	return &Drainer{client: client, events: events, logger: logger}
}

// ReceiveOne pops a single reading. It returns ErrEmpty, after posting an
// empty notice, when the queue has nothing.
func (d *Drainer) ReceiveOne(ctx context.Context) error {
	msgs, err := d.client.Receive(ctx, 1)
	if err != nil {
		return fmt.Errorf("receive: %w", err)
	}
	if len(msgs) == 0 {
		d.post(ctx, emptyNotice())
		return ErrEmpty
	}
	d.consume(ctx, msgs[0])
	return nil
}

// DrainAll pops readings until the queue reports empty or the remaining
// count taken from the queue's estimate reaches zero. A zero estimate does
// not stop the drain: the queue is polled until a receive comes back
// empty. Each message is deleted after it is posted; a failed delete is
// reported and the drain continues.
//
// It returns the number of readings posted.
func (d *Drainer) DrainAll(ctx context.Context) (int, error) {
	remaining, err := d.client.ApproximateCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("approximate count: %w", err)
	}
	bounded := remaining > 0
	d.post(ctx, dispatch.Remaining{N: remaining})

	posted := 0
	for !bounded || remaining > 0 {
		if err := ctx.Err(); err != nil {
			return posted, err
		}

		max := MaxBatch
		if bounded && remaining < max {
			max = remaining
		}
		msgs, err := d.client.Receive(ctx, max)
		if err != nil {
			return posted, fmt.Errorf("receive: %w", err)
		}
		if len(msgs) == 0 {
			break
		}

		for _, m := range msgs {
			if d.consume(ctx, m) {
				posted++
			}
			if remaining > 0 {
				remaining--
			}
			d.post(ctx, dispatch.Remaining{N: remaining})
		}
	}

	if posted == 0 {
		d.post(ctx, emptyNotice())
		return 0, ErrEmpty
	}
	d.logger.Info("queue drained", "readings", posted)
	return posted, nil
}

// consume posts one message and acknowledges it. Malformed bodies are
// dropped but still deleted so they are not redelivered.
func (d *Drainer) consume(ctx context.Context, m Message) bool {
	r, err := Decode(m.Body)
	ok := err == nil
	if ok {
		d.post(ctx, dispatch.Queued{Reading: r})
	} else {
		d.logger.Debug("dropping queue message", "err", err)
	}

	if err := d.client.Delete(ctx, m.Receipt); err != nil {
		d.logger.Warn("delete failed", "receipt", m.Receipt, "err", err)
		d.post(ctx, dispatch.Failure{Notice: dispatch.Notice{
			Kind: dispatch.NoticeDeleteFailed,
			Text: fmt.Sprintf("Failed to delete message: %v", err),
		}})
	}
	return ok
}

func (d *Drainer) post(ctx context.Context, ev dispatch.Event) {
	select {
	case d.events <- ev:
	case <-ctx.Done():
	}
}

func emptyNotice() dispatch.Failure {
	return dispatch.Failure{Notice: dispatch.Notice{
		Kind:     dispatch.NoticeEmpty,
		Text:     dispatch.TextQueueEmpty,
		Blocking: true,
	}}
}
