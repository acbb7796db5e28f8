package transport

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

	"github.com/luki/tempomatic/internal/dispatch"
	"github.com/luki/tempomatic/internal/message"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeService answers every text frame with replies[cmd] and closes the
// connection on "BYE".
func fakeService(t *testing.T, replies map[string]string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "BYE" {
				return
			}
			if reply, ok := replies[string(data)]; ok {
				conn.WriteMessage(websocket.TextMessage, []byte(reply))
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func next(t *testing.T, events <-chan dispatch.Event) dispatch.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestListenPostsInbound(t *testing.T) {
	url := fakeService(t, map[string]string{
		"CR": `{"currentTemperature":"21.0","sensorStatus":"Ready"}`,
		"XX": `not json`,
		"YY": `{"unrelated":1}`,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := Dial(ctx, dispatch.SourcePrimary, url, discard())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	events := make(chan dispatch.Event, 4)
	go conn.Listen(ctx, events)

	// Malformed and field-less frames are dropped.
	for _, cmd := range []message.Command{"XX", "YY", message.CmdCurrentReading} {
		if err := conn.Send(cmd); err != nil {
			t.Fatalf("Send %s: %v", cmd, err)
		}
	}

	ev, ok := next(t, events).(dispatch.Inbound)
	if !ok {
		t.Fatalf("expected Inbound, got %T", ev)
	}
	if ev.Source != dispatch.SourcePrimary || len(ev.Msgs) != 2 {
		t.Errorf("got %+v", ev)
	}
}

func TestListenPostsClosed(t *testing.T) {
	url := fakeService(t, nil)
	ctx := context.Background()

	conn, err := Dial(ctx, dispatch.SourceHistory, url, discard())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	events := make(chan dispatch.Event, 1)
	done := make(chan struct{})
	go func() {
		conn.Listen(ctx, events)
		close(done)
	}()

	conn.Send("BYE")
	ev, ok := next(t, events).(dispatch.Closed)
	if !ok || ev.Source != dispatch.SourceHistory {
		t.Fatalf("expected Closed from history, got %+v", ev)
	}
	<-done

	if err := conn.Send(message.CmdPreviousReading); !errors.Is(err, ErrNotConnected) {
		t.Errorf("send after close: got %v", err)
	}
}

func TestClientRoutesCommands(t *testing.T) {
	primaryURL := fakeService(t, map[string]string{
		"NA": `{"command":"PythonNetwork","status":"Success"}`,
	})
	historyURL := fakeService(t, map[string]string{
		"NA": `{"command":"NodeJSNetwork"}`,
		"PR": `{"prevTemperature":"19.0"}`,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	primary, err := Dial(ctx, dispatch.SourcePrimary, primaryURL, discard())
	if err != nil {
		t.Fatal(err)
	}
	history, err := Dial(ctx, dispatch.SourceHistory, historyURL, discard())
	if err != nil {
		t.Fatal(err)
	}
	client := NewClient(primary, history)
	defer client.Close()

	events := make(chan dispatch.Event, 4)
	go client.Listen(ctx, events)

	if err := client.Send(message.CmdNetworkActivity); err != nil {
		t.Fatalf("Send NA: %v", err)
	}
	seen := map[dispatch.Source]bool{}
	for i := 0; i < 2; i++ {
		if ev, ok := next(t, events).(dispatch.Inbound); ok {
			seen[ev.Source] = true
		}
	}
	if !seen[dispatch.SourcePrimary] || !seen[dispatch.SourceHistory] {
		t.Errorf("NA should reach both services, saw %v", seen)
	}
}

func TestClientMissingTarget(t *testing.T) {
	client := NewClient(nil)
	if err := client.Send(message.CmdPreviousReading); !errors.Is(err, ErrNotConnected) {
		t.Errorf("got %v", err)
	}
}
