package monitor

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/tempomatic/internal/chart"
	"github.com/luki/tempomatic/internal/dispatch"
	"github.com/luki/tempomatic/internal/message"
	"github.com/luki/tempomatic/internal/readings"
)

type fakeSender struct {
	sent []message.Command
	err  error
}

func (f *fakeSender) Send(cmd message.Command) error {
	f.sent = append(f.sent, cmd)
	return f.err
}

func newModel(t *testing.T) (Model, *fakeSender) {
	t.Helper()
	s := &fakeSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := New(readings.New(), s, make(chan dispatch.Event), Options{Limits: chart.Limits{TemperatureHigh: 28, HumidityHigh: 80}}, logger)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	return next.(Model), s
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func inbound(t *testing.T, frame string) eventMsg {
	t.Helper()
	msgs, err := message.Decode([]byte(frame))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return eventMsg{dispatch.Inbound{Source: dispatch.SourcePrimary, Msgs: msgs}}
}

func TestKeysSendCommands(t *testing.T) {
	m, s := newModel(t)
	for _, k := range []string{"c", "p", "n", "g"} {
		var cmd tea.Cmd
		m, cmd = update(t, m, runes(k))
		if cmd == nil {
			t.Fatalf("key %q: no command", k)
		}
		cmd()
	}
	want := []message.Command{
		message.CmdCurrentReading,
		message.CmdPreviousReading,
		message.CmdNetworkActivity,
		message.CmdPlotData,
	}
	if len(s.sent) != len(want) {
		t.Fatalf("sent %v, want %v", s.sent, want)
	}
	for i := range want {
		if s.sent[i] != want[i] {
			t.Errorf("sent[%d] = %s, want %s", i, s.sent[i], want[i])
		}
	}
}

func TestInboundUpdatesView(t *testing.T) {
	m, _ := newModel(t)
	m, cmd := update(t, m, inbound(t, `{"currentTemperature":"21.5","currentHumidity":"40.2","sensorStatus":"Ready"}`))
	if cmd == nil {
		t.Error("event handling should wait for the next event")
	}
	view := m.View()
	for _, want := range []string{"21.5 °C", "40.2 %", "Ready"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestToggleKey(t *testing.T) {
	m, _ := newModel(t)
	m, _ = update(t, m, inbound(t, `{"currentTemperature":"20"}`))
	m, _ = update(t, m, runes("u"))
	if !strings.Contains(m.View(), "68.0 °F") {
		t.Errorf("expected Fahrenheit reading after toggle:\n%s", m.View())
	}
}

func TestBlockingNoticeSwallowsKeys(t *testing.T) {
	m, s := newModel(t)
	m, _ = update(t, m, inbound(t, `{"command":"PythonNetwork","status":"Failure"}`))
	if !m.screen.blocked() {
		t.Fatal("failed report should raise a blocking notice")
	}
	if !strings.Contains(m.View(), dispatch.TextDatabaseEmpty) {
		t.Error("notice not shown")
	}

	m, cmd := update(t, m, runes("c"))
	if cmd != nil {
		cmd()
	}
	if len(s.sent) != 0 {
		t.Errorf("keys should be ignored while blocked, sent %v", s.sent)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.screen.blocked() {
		t.Error("enter should dismiss the notice")
	}
}

func TestQuitWhileBlocked(t *testing.T) {
	m, _ := newModel(t)
	m, _ = update(t, m, eventMsg{dispatch.Closed{Source: dispatch.SourceHistory}})
	_, cmd := update(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("quit should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestSendErrorShownInFooter(t *testing.T) {
	m, s := newModel(t)
	s.err = errors.New("not connected")
	m, cmd := update(t, m, runes("c"))
	msg := cmd()
	m, _ = update(t, m, msg)
	if !strings.Contains(m.View(), "not connected") {
		t.Error("send failure should appear in the footer")
	}
}

func TestPlotAndReportsRendered(t *testing.T) {
	m, _ := newModel(t)
	m, _ = update(t, m, inbound(t, `{"command":"plotData","status":"Success","times":["10:00:00","10:01:00"],"temperatures":["20.0","20.5"],"humidities":["50.0","51.0"]}`))
	m, _ = update(t, m, inbound(t, `{"command":"NodeJSNetwork","dataset1":"21.0","starttime":"10:00:00.000","endtime":"10:00:00.012","duration":"12.0"}`))
	view := m.View()
	for _, want := range []string{"Temp vs Time", "Humidity vs Time", "Node.js Network", "12.0 ms"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
