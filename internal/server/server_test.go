package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luki/tempomatic/internal/config"
	"github.com/luki/tempomatic/internal/message"
	"github.com/luki/tempomatic/internal/sensor"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, path string, r Responder, health Pinger) string {
	t.Helper()
	cfg := config.Default().Primary
	svc := NewService("test", r, cfg, discard())
	srv := httptest.NewServer(Wrap(NewRouter(path, svc, health), discard()))
	t.Cleanup(srv.Close)
	return srv.URL
}

func dial(t *testing.T, base, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(base, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, cmd string) []message.Message {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(cmd)); err != nil {
		t.Fatalf("write %s: %v", cmd, err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read reply to %s: %v", cmd, err)
	}
	msgs, err := message.Decode(data)
	if err != nil {
		t.Fatalf("decode reply to %s: %v", cmd, err)
	}
	return msgs
}

func TestPrimaryOverWebsocket(t *testing.T) {
	p := &Primary{
		Sensor: fixedSensor{sensor.Result{Status: sensor.StatusReady, Temperature: 22.5, Humidity: 48.3}},
		Rows:   seeded(4),
	}
	conn := dial(t, startServer(t, "/ws", p, nil), "/ws")

	msgs := roundTrip(t, conn, "CR")
	if len(msgs) != 3 {
		t.Fatalf("CR: got %+v", msgs)
	}
	if msgs[0] != (message.CurrentTemperature{Celsius: 22.5}) {
		t.Errorf("CR temperature: got %+v", msgs[0])
	}

	msgs = roundTrip(t, conn, "PD")
	if pd, ok := msgs[0].(message.PlotData); !ok || len(pd.Times) != 4 {
		t.Errorf("PD: got %+v", msgs)
	}
}

func TestUnknownCommandKeepsConnection(t *testing.T) {
	h := &History{Rows: seeded(1)}
	conn := dial(t, startServer(t, "/", h, nil), "/")

	// Neither reply nor disconnect; the next command still works.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("XX")); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("CR")); err != nil {
		t.Fatal(err)
	}
	msgs := roundTrip(t, conn, "PR")
	if len(msgs) != 3 {
		t.Errorf("PR: got %+v", msgs)
	}
}

func TestEmptyHistorySendsNothing(t *testing.T) {
	h := &History{Rows: &memRows{}}
	conn := dial(t, startServer(t, "/", h, nil), "/")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("PR")); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Errorf("expected no reply, got %s", data)
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	healthy := startServer(t, "/ws", &History{}, pingFunc(func(context.Context) error { return nil }))
	resp, err := http.Get(healthy + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthy: got %d", resp.StatusCode)
	}

	broken := startServer(t, "/ws", &History{}, pingFunc(func(context.Context) error { return errors.New("db down") }))
	resp, err = http.Get(broken + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("broken: got %d", resp.StatusCode)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://ok.example"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	if check(req) {
		t.Error("unexpected origin accepted")
	}
	req.Header.Set("Origin", "http://OK.example")
	if !check(req) {
		t.Error("allowed origin rejected")
	}
}
