package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/luki/tempomatic/internal/config"
)

// pollTimeout bounds each fetch so an idle topic reads as empty.
const pollTimeout = 500 * time.Millisecond

// KafkaReader is the part of *kafka.Reader the client uses.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Stats() kafka.ReaderStats
	Close() error
}

// KafkaWriter is the part of *kafka.Writer the client uses.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka is a Client backed by a consumer group on one topic. Delete
// commits the message's offset.
type Kafka struct {
	reader KafkaReader
	writer KafkaWriter
	poll   time.Duration

	mu      sync.Mutex
	pending map[string]kafka.Message
}

// NewKafka creates the consumer and producer for cfg.Topic.
func NewKafka(cfg config.KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka: brokers and topic are required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 1 << 20,
		MaxWait:  pollTimeout,
	})
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	return NewKafkaWith(reader, writer, pollTimeout), nil
}

// NewKafkaWith wraps an existing reader and writer. Each fetch waits at
// most poll before the topic counts as empty.
func NewKafkaWith(r KafkaReader, w KafkaWriter, poll time.Duration) *Kafka {
	return &Kafka{reader: r, writer: w, poll: poll, pending: make(map[string]kafka.Message)}
}

func (k *Kafka) Receive(ctx context.Context, max int) ([]Message, error) {
	var out []Message
	for len(out) < max {
		fetchCtx, cancel := context.WithTimeout(ctx, k.poll)
		m, err := k.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				break
			}
			return out, err
		}
		receipt := receiptOf(m)
		k.mu.Lock()
		k.pending[receipt] = m
		k.mu.Unlock()
		out = append(out, Message{Body: m.Value, Receipt: receipt})
	}
	return out, nil
}

func (k *Kafka) Delete(ctx context.Context, receipt string) error {
	k.mu.Lock()
	m, ok := k.pending[receipt]
	delete(k.pending, receipt)
	k.mu.Unlock()
	if !ok {
		// Fetched by an earlier session; commit by position.
		topic, partition, offset, err := parseReceipt(receipt)
		if err != nil {
			return err
		}
		m = kafka.Message{Topic: topic, Partition: partition, Offset: offset}
	}
	return k.reader.CommitMessages(ctx, m)
}

// ApproximateCount reports the consumer lag seen on the last fetch. It is
// zero before the first fetch.
func (k *Kafka) ApproximateCount(ctx context.Context) (int, error) {
	return int(k.reader.Stats().Lag), nil
}

func (k *Kafka) Send(ctx context.Context, body []byte) error {
	return k.writer.WriteMessages(ctx, kafka.Message{Value: body})
}

func (k *Kafka) Close() error {
	return errors.Join(k.reader.Close(), k.writer.Close())
}

func receiptOf(m kafka.Message) string {
	return m.Topic + "/" + strconv.Itoa(m.Partition) + "/" + strconv.FormatInt(m.Offset, 10)
}

// parseReceipt splits a receipt back into topic, partition and offset.
func parseReceipt(r string) (topic string, partition int, offset int64, err error) {
	parts := strings.Split(r, "/")
	if len(parts) != 3 || parts[0] == "" {
		return "", 0, 0, fmt.Errorf("malformed receipt %q", r)
	}
	if partition, err = strconv.Atoi(parts[1]); err != nil {
		return "", 0, 0, fmt.Errorf("malformed receipt %q: %w", r, err)
	}
	if offset, err = strconv.ParseInt(parts[2], 10, 64); err != nil {
		return "", 0, 0, fmt.Errorf("malformed receipt %q: %w", r, err)
	}
	return parts[0], partition, offset, nil
}

// New builds the Client selected by cfg.Kind.
func New(ctx context.Context, cfg config.QueueConfig) (Client, error) {
	switch cfg.Kind {
	case config.QueueSQS:
		return NewSQS(ctx, cfg.SQS)
	case config.QueueKafka:
		return NewKafka(cfg.Kafka)
	}
	return nil, fmt.Errorf("unknown queue kind %q", cfg.Kind)
}
