package dispatch

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/luki/tempomatic/internal/history"
	"github.com/luki/tempomatic/internal/message"
	"github.com/luki/tempomatic/internal/readings"
	"github.com/luki/tempomatic/internal/sensor"
	"github.com/luki/tempomatic/internal/units"
)

type recorder struct {
	slots     map[readings.Slot]string
	toggle    string
	plots     []Plot
	reports   []message.NetworkActivity
	rows      [][]history.Row
	remaining []int
	notices   []Notice
}

func newRecorder() *recorder {
	return &recorder{slots: make(map[readings.Slot]string)}
}

func (r *recorder) RenderSlot(slot readings.Slot, text string) { r.slots[slot] = text }
func (r *recorder) RenderToggle(label string)                  { r.toggle = label }
func (r *recorder) Plot(p Plot)                                { r.plots = append(r.plots, p) }
func (r *recorder) Report(n message.NetworkActivity)           { r.reports = append(r.reports, n) }
func (r *recorder) RenderRows(rows []history.Row)              { r.rows = append(r.rows, rows) }
func (r *recorder) RenderRemaining(n int)                      { r.remaining = append(r.remaining, n) }
func (r *recorder) Notify(n Notice)                            { r.notices = append(r.notices, n) }

func setup() (*Dispatcher, *recorder) {
	rec := newRecorder()
	sinks := Sinks{Render: rec, Plot: rec, Report: rec, Table: rec, Notify: rec}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(readings.New(), sinks, logger), rec
}

func decode(t *testing.T, frame string) []message.Message {
	t.Helper()
	msgs, err := message.Decode([]byte(frame))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return msgs
}

func TestDispatchIndependentFields(t *testing.T) {
	d, rec := setup()
	d.Dispatch(decode(t, `{"currentTemperature":"21.5","sensorStatus":"Ready"}`)...)

	if got := rec.slots[readings.SlotCurrentTemperature]; got != "21.5 °C" {
		t.Errorf("current temperature: got %q", got)
	}
	if got := rec.slots[readings.SlotSensorStatus]; got != "Ready" {
		t.Errorf("sensor status: got %q", got)
	}
	if len(rec.slots) != 2 {
		t.Errorf("expected exactly 2 slots rendered, got %v", rec.slots)
	}
}

func TestDispatchFahrenheitCurrent(t *testing.T) {
	d, rec := setup()
	d.Toggle()
	d.Dispatch(decode(t, `{"currentTemperature":"20.0","currentHumidity":"44.44"}`)...)

	if got := rec.slots[readings.SlotCurrentTemperature]; got != "68.0 °F" {
		t.Errorf("got %q", got)
	}
	if got := rec.slots[readings.SlotCurrentHumidity]; got != "44.4 %" {
		t.Errorf("humidity: got %q", got)
	}
}

func TestDispatchPreviousReading(t *testing.T) {
	d, rec := setup()
	d.Dispatch(decode(t, `{"prevTemperature":"19.0","prevHumidity":"41.0","timestamp":"10/20/19 04:16:23"}`)...)

	want := map[readings.Slot]string{
		readings.SlotPrevTemperature: "19.0 °C",
		readings.SlotPrevHumidity:    "41.0 %",
		readings.SlotPrevTimestamp:   "04:16:23",
	}
	if !reflect.DeepEqual(rec.slots, want) {
		t.Errorf("got %v, want %v", rec.slots, want)
	}
}

func TestPlotDataRebuildInFahrenheit(t *testing.T) {
	d, rec := setup()
	d.Toggle()
	d.Dispatch(decode(t, `{"command":"plotData","status":"Success","times":["10:00","10:01"],
		"temperatures":[20.0,21.0],"humidities":[50.0,55.0]}`)...)

	if len(rec.plots) != 1 {
		t.Fatalf("expected one plot, got %d", len(rec.plots))
	}
	p := rec.plots[0]
	if !reflect.DeepEqual(p.Temperatures, []float64{68.0, 69.8}) {
		t.Errorf("temperatures: got %v", p.Temperatures)
	}
	if !reflect.DeepEqual(p.Humidities, []float64{50.0, 55.0}) {
		t.Errorf("humidities: got %v", p.Humidities)
	}
	if p.Unit != units.Fahrenheit {
		t.Errorf("unit: got %v", p.Unit)
	}
}

func TestPlotDataFailureKeepsSeries(t *testing.T) {
	d, rec := setup()
	d.Dispatch(decode(t, `{"command":"plotData","status":"Success","times":["10:00"],"temperatures":[20],"humidities":[50]}`)...)
	d.Dispatch(decode(t, `{"command":"plotData","status":"Failed"}`)...)

	if len(rec.notices) != 1 || rec.notices[0].Text != TextNoPlotData || !rec.notices[0].Blocking {
		t.Errorf("notices: got %+v", rec.notices)
	}
	if got := d.Store().Series(); got.Len() != 1 || got.Temperatures[0] != 20 {
		t.Errorf("series modified: %+v", got)
	}
	if len(rec.plots) != 1 {
		t.Errorf("failed reply must not redraw, got %d plots", len(rec.plots))
	}
}

func TestNetworkActivity(t *testing.T) {
	d, rec := setup()
	d.Dispatch(decode(t, `{"command":"PythonNetwork","status":"Success","dataset1":"40.0","duration":"3.0"}`)...)
	d.Dispatch(decode(t, `{"command":"PythonNetwork","status":"Failure"}`)...)
	d.Dispatch(decode(t, `{"command":"NodeJSNetwork","dataset1":41}`)...)

	if len(rec.reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(rec.reports))
	}
	if rec.reports[1].Origin != message.CommandNodeJSNetwork {
		t.Errorf("second report origin: %q", rec.reports[1].Origin)
	}
	if len(rec.notices) != 1 || rec.notices[0].Text != TextDatabaseEmpty {
		t.Errorf("notices: got %+v", rec.notices)
	}
}

func TestUnknownMessageIgnored(t *testing.T) {
	d, rec := setup()
	d.Dispatch(decode(t, `{"hello":"world"}`)...)
	if len(rec.slots)+len(rec.plots)+len(rec.reports)+len(rec.notices) != 0 {
		t.Error("unknown frame should have no effect")
	}
}

func TestToggleRerendersEverything(t *testing.T) {
	d, rec := setup()
	d.Toggle()
	if got := rec.slots[readings.SlotCurrentTemperature]; got != "- °F" {
		t.Errorf("placeholder: got %q", got)
	}
	if rec.toggle != "Convert to Celsius" {
		t.Errorf("toggle label: got %q", rec.toggle)
	}
	if len(rec.plots) != 0 || len(rec.rows) != 0 {
		t.Error("empty series and buffer must not be redrawn")
	}

	d.Handle(Queued{Reading: sensor.Reading{Temperature: sensor.Float(10)}})
	d.Dispatch(decode(t, `{"command":"plotData","status":"Success","times":["t"],"temperatures":[10],"humidities":[1]}`)...)
	d.Toggle()

	last := rec.rows[len(rec.rows)-1]
	if last[0].Temperature != "10.0 °C" {
		t.Errorf("row after toggle: got %q", last[0].Temperature)
	}
	if got := rec.plots[len(rec.plots)-1].Temperatures[0]; got != 10 {
		t.Errorf("plot after toggle: got %v", got)
	}
}

func TestHandleAppliesEventsInOrder(t *testing.T) {
	d, rec := setup()
	events := []Event{
		Inbound{Source: SourcePrimary, Msgs: []message.Message{message.CurrentTemperature{Celsius: 30}}},
		Toggle{},
		Remaining{N: 3},
		Closed{Source: SourceHistory, Err: errors.New("eof")},
		Settled{N: 1},
	}
	for _, ev := range events {
		d.Handle(ev)
	}

	if got := rec.slots[readings.SlotCurrentTemperature]; got != "86.0 °F" {
		t.Errorf("got %q", got)
	}
	if !reflect.DeepEqual(rec.remaining, []int{3}) {
		t.Errorf("remaining: got %v", rec.remaining)
	}
	if len(rec.notices) != 1 || rec.notices[0].Kind != NoticeTransportClosed {
		t.Errorf("notices: got %+v", rec.notices)
	}
}

func TestHistoryReportIgnoresStatus(t *testing.T) {
	d, rec := setup()
	d.Dispatch(decode(t, `{"command":"NodeJSNetwork","status":"Failure","dataset1":"50.0"}`)...)
	if len(rec.reports) != 1 || rec.reports[0].Origin != message.CommandNodeJSNetwork {
		t.Fatalf("reports: got %+v", rec.reports)
	}
	if len(rec.notices) != 0 {
		t.Errorf("history report must not raise a notice, got %+v", rec.notices)
	}

	d.Dispatch(decode(t, `{"command":"PythonNetwork","status":"Failure"}`)...)
	if len(rec.reports) != 1 || len(rec.notices) != 1 || rec.notices[0].Text != TextDatabaseEmpty {
		t.Errorf("primary failure: reports %d, notices %+v", len(rec.reports), rec.notices)
	}
}

func TestTargets(t *testing.T) {
	if got := Targets(message.CmdNetworkActivity); !reflect.DeepEqual(got, []Source{SourcePrimary, SourceHistory}) {
		t.Errorf("NA: got %v", got)
	}
	if got := Targets(message.CmdPreviousReading); !reflect.DeepEqual(got, []Source{SourceHistory}) {
		t.Errorf("PR: got %v", got)
	}
}
