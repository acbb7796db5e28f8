package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/luki/tempomatic/internal/config"
)

// Handler receives decoded payloads from a subscription.
type Handler func(topic string, p Payload)

// MQTT publishes and subscribes below a topic prefix.
type MQTT struct {
	client mqtt.Client
	prefix string
	qos    byte
	logger *slog.Logger
}

// Connect dials the broker. The client id gets a random suffix so several
// commands can share one configuration.
func Connect(cfg config.MQTTConfig, logger *slog.Logger) (*MQTT, error) {
	clientID := cfg.ClientID + "-" + uuid.NewString()[:8]
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", "err", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	logger.Info("mqtt connected", "broker", cfg.Broker, "client_id", clientID)
	return New(client, cfg, logger), nil
}

// New wraps a connected client.
func New(client mqtt.Client, cfg config.MQTTConfig, logger *slog.Logger) *MQTT {
	return &MQTT{client: client, prefix: cfg.TopicPrefix, qos: cfg.QoS, logger: logger}
}

// Publish sends p to the prefixed topic name.
func (m *MQTT) Publish(ctx context.Context, name string, p Payload) error {
	b, err := Encode(p)
	if err != nil {
		return err
	}
	topic := m.prefix + name
	if err := wait(ctx, m.client.Publish(topic, m.qos, false, b)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe delivers every decodable payload under the prefixed filter to
// h. Undecodable messages are logged and dropped.
func (m *MQTT) Subscribe(ctx context.Context, filter string, h Handler) error {
	topic := m.prefix + filter
	token := m.client.Subscribe(topic, m.qos, func(_ mqtt.Client, msg mqtt.Message) {
		p, err := Decode(msg.Payload())
		if err != nil {
			m.logger.Debug("dropping mqtt message", "topic", msg.Topic(), "err", err)
			return
		}
		h(msg.Topic(), p)
	})
	if err := wait(ctx, token); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Close disconnects, giving in-flight work 250ms.
func (m *MQTT) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

func wait(ctx context.Context, t mqtt.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
