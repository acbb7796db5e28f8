// Package transport connects a client to the websocket services and feeds
// their replies into the dispatch loop.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/luki/tempomatic/internal/dispatch"
	"github.com/luki/tempomatic/internal/message"
)

// ErrNotConnected is returned when a command targets a service without a
// live connection.
var ErrNotConnected = errors.New("transport: not connected")

// Conn is one websocket connection to a service.
type Conn struct {
	source dispatch.Source
	ws     *websocket.Conn
	logger *slog.Logger

	mu     sync.Mutex // serializes writes
	closed bool
}

// Dial connects to url. source tags every event the connection produces.
func Dial(ctx context.Context, source dispatch.Source, url string, logger *slog.Logger) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s service: %w", source, err)
	}
	return &Conn{
		source: source,
		ws:     ws,
		logger: logger.With("source", string(source)),
	}, nil
}

// Source returns the service this connection talks to.
func (c *Conn) Source() dispatch.Source { return c.source }

// Send writes one command as a text frame.
func (c *Conn) Send(cmd message.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("%w: %s", ErrNotConnected, c.source)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(cmd)); err != nil {
		return fmt.Errorf("send %s to %s: %w", cmd, c.source, err)
	}
	return nil
}

// Listen reads frames until the connection fails or ctx is done. Each
// frame is posted as a dispatch.Inbound; the end of the connection is
// posted as a dispatch.Closed unless ctx was cancelled. No reconnect is
// attempted.
func (c *Conn) Listen(ctx context.Context, events chan<- dispatch.Event) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.markClosed()
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("connection closed", "err", err)
			post(ctx, events, dispatch.Closed{Source: c.source, Err: err})
			return
		}

		msgs, err := message.Decode(data)
		if err != nil {
			c.logger.Debug("dropping frame", "err", err)
			continue
		}
		if len(msgs) == 0 {
			c.logger.Debug("frame carried no known fields", "fields", message.Keys(data))
			continue
		}
		if !post(ctx, events, dispatch.Inbound{Source: c.source, Msgs: msgs}) {
			return
		}
	}
}

// Close sends a close frame and releases the socket.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.ws.Close()
	}
	c.closed = true
	c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.ws.Close()
}

func (c *Conn) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func post(ctx context.Context, events chan<- dispatch.Event, ev dispatch.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Client routes commands to the connections that serve them.
type Client struct {
	conns map[dispatch.Source]*Conn
}

// NewClient groups connections by source. Nil connections are skipped.
func NewClient(conns ...*Conn) *Client {
	c := &Client{conns: make(map[dispatch.Source]*Conn)}
	for _, conn := range conns {
		if conn != nil {
			c.conns[conn.Source()] = conn
		}
	}
	return c
}

// Send delivers cmd to every service that handles it. It keeps going past
// a failed target and returns the joined errors.
func (c *Client) Send(cmd message.Command) error {
	var errs []error
	for _, src := range dispatch.Targets(cmd) {
		conn, ok := c.conns[src]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNotConnected, src))
			continue
		}
		if err := conn.Send(cmd); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Listen runs every connection's read loop and returns when all have
// stopped.
func (c *Client) Listen(ctx context.Context, events chan<- dispatch.Event) {
	var wg sync.WaitGroup
	for _, conn := range c.conns {
		wg.Add(1)
		go func(conn *Conn) {
			defer wg.Done()
			conn.Listen(ctx, events)
		}(conn)
	}
	wg.Wait()
}

// Close closes every connection.
func (c *Client) Close() error {
	var errs []error
	for _, conn := range c.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
