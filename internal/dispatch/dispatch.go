// Package dispatch routes decoded messages and user actions into a
// readings.Store and pushes the resulting state to the display sinks.
//
// All mutation happens on one goroutine: transports and the queue drainer
// post Events to a channel, and the client's UI loop passes each one to
// Handle in order.
package dispatch

import (
	"log/slog"

	"github.com/luki/tempomatic/internal/history"
	"github.com/luki/tempomatic/internal/message"
	"github.com/luki/tempomatic/internal/readings"
	"github.com/luki/tempomatic/internal/units"
)

// Notice texts shown to the user.
const (
	TextDatabaseEmpty = "Database is empty!"
	TextNoPlotData    = "No data to generate plots!"
	TextQueueEmpty    = "Queue is empty!"
)

// Plot is what the plot sink draws: parallel sequences already projected
// into Unit.
type Plot struct {
	Unit         units.System
	Times        []string
	Temperatures []float64
	Humidities   []float64
}

// Renderer reflects scalar slots and the unit toggle caption.
type Renderer interface {
	RenderSlot(slot readings.Slot, text string)
	RenderToggle(label string)
}

// Plotter draws the temperature and humidity charts.
type Plotter interface {
	Plot(p Plot)
}

// Reporter shows a network activity report, keyed by its origin.
type Reporter interface {
	Report(r message.NetworkActivity)
}

// Tabler renders the rolling buffer and the queue's remaining count.
type Tabler interface {
	RenderRows(rows []history.Row)
	RenderRemaining(n int)
}

// Notifier surfaces a user-visible notice.
type Notifier interface {
	Notify(n Notice)
}

// Sinks groups the display collaborators. Nil sinks are skipped.
type Sinks struct {
	Render Renderer
	Plot   Plotter
	Report Reporter
	Table  Tabler
	Notify Notifier
}

// Dispatcher owns a Store on behalf of one event loop.
type Dispatcher struct {
	store  *readings.Store
	sinks  Sinks
	logger *slog.Logger
}

// New creates a dispatcher for store.
func New(store *readings.Store, sinks Sinks, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: store, sinks: sinks, logger: logger}
}

// Store exposes the owned state for read-only rendering.
func (d *Dispatcher) Store() *readings.Store { return d.store }

// Handle applies one event.
func (d *Dispatcher) Handle(ev Event) {
	switch ev := ev.(type) {
	case Inbound:
		d.Dispatch(ev.Msgs...)
	case Toggle:
		d.Toggle()
	case Closed:
		d.logger.Warn("transport closed", "source", ev.Source, "error", ev.Err)
		d.notify(Notice{Kind: NoticeTransportClosed, Text: closedText(ev.Source), Blocking: true})
	case Queued:
		d.store.Append(ev.Reading)
		d.renderRows()
	case Remaining:
		if d.sinks.Table != nil {
			d.sinks.Table.RenderRemaining(ev.N)
		}
	case Failure:
		d.notify(ev.Notice)
	case Settled:
		// marker for the producer; nothing to apply
	default:
		d.logger.Debug("ignoring unknown event", "type", ev)
	}
}

// Dispatch applies each variant of one inbound frame.
func (d *Dispatcher) Dispatch(msgs ...message.Message) {
	for _, m := range msgs {
		switch m := m.(type) {
		case message.CurrentTemperature:
			d.store.SetCurrentTemperature(m.Celsius)
			d.renderSlot(readings.SlotCurrentTemperature)
		case message.CurrentHumidity:
			d.store.SetCurrentHumidity(m.Percent)
			d.renderSlot(readings.SlotCurrentHumidity)
		case message.SensorStatus:
			d.store.SetSensorStatus(m.Status)
			d.renderSlot(readings.SlotSensorStatus)
		case message.PrevTemperature:
			d.store.SetPrevTemperature(m.Celsius)
			d.renderSlot(readings.SlotPrevTemperature)
		case message.PrevHumidity:
			d.store.SetPrevHumidity(m.Percent)
			d.renderSlot(readings.SlotPrevHumidity)
		case message.PrevTimestamp:
			d.store.SetPrevTimestamp(m.TimeOfDay())
			d.renderSlot(readings.SlotPrevTimestamp)
		case message.NetworkActivity:
			d.networkActivity(m)
		case message.PlotData:
			d.plotData(m)
		default:
			d.logger.Debug("ignoring unknown message", "type", m)
		}
	}
}

// Toggle flips the unit system and re-renders every temperature.
func (d *Dispatcher) Toggle() {
	unit := d.store.ToggleUnit()
	d.logger.Debug("unit toggled", "unit", unit)

	if d.sinks.Render != nil {
		d.sinks.Render.RenderToggle(d.store.ToggleLabel())
	}
	d.renderSlot(readings.SlotCurrentTemperature)
	d.renderSlot(readings.SlotPrevTemperature)
	if !d.store.Series().Empty() {
		d.plot()
	}
	if d.store.RollingLen() > 0 {
		d.renderRows()
	}
}

// networkActivity shows a report. Only the primary service's reports carry
// a meaningful status; history reports are always shown.
func (d *Dispatcher) networkActivity(m message.NetworkActivity) {
	if m.Origin == message.CommandPythonNetwork && !m.Success() {
		d.notify(Notice{Kind: NoticeEmpty, Text: TextDatabaseEmpty, Blocking: true})
		return
	}
	if d.sinks.Report != nil {
		d.sinks.Report.Report(m)
	}
}

func (d *Dispatcher) plotData(m message.PlotData) {
	if !m.Success() {
		d.notify(Notice{Kind: NoticeEmpty, Text: TextNoPlotData, Blocking: true})
		return
	}
	series, err := history.NewSeries(m.Times, m.Temperatures, m.Humidities)
	if err != nil {
		d.logger.Debug("dropping plot data", "error", err)
		return
	}
	d.store.ReplaceSeries(series)
	d.plot()
}

func (d *Dispatcher) plot() {
	if d.sinks.Plot == nil {
		return
	}
	s := d.store.Series()
	unit := d.store.Unit()
	d.sinks.Plot.Plot(Plot{
		Unit:         unit,
		Times:        s.Times,
		Temperatures: s.TemperaturesIn(unit),
		Humidities:   s.RoundedHumidities(),
	})
}

func (d *Dispatcher) renderSlot(slot readings.Slot) {
	if d.sinks.Render != nil {
		d.sinks.Render.RenderSlot(slot, d.store.Text(slot))
	}
}

func (d *Dispatcher) renderRows() {
	if d.sinks.Table != nil {
		d.sinks.Table.RenderRows(d.store.Rows())
	}
}

func (d *Dispatcher) notify(n Notice) {
	if d.sinks.Notify != nil {
		d.sinks.Notify.Notify(n)
	}
}
