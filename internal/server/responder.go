package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/luki/tempomatic/internal/message"
	"github.com/luki/tempomatic/internal/sensor"
	"github.com/luki/tempomatic/internal/store"
)

// Rows is the part of the store the services read from.
type Rows interface {
	Last(ctx context.Context) (store.Row, error)
	Latest(ctx context.Context, n int) ([]store.Row, error)
	Oldest(ctx context.Context, n int) ([]store.Row, error)
}

// Responder answers one command with the variants of a reply frame. A nil
// slice with a nil error means nothing is sent back.
type Responder interface {
	Respond(ctx context.Context, cmd message.Command) ([]message.Message, error)
}

// ErrUnsupported is returned for commands a service does not serve.
var ErrUnsupported = errors.New("command not served here")

// Timestamp layouts on the wire.
const (
	stampLayout    = "01/02/06 15:04:05"
	activityLayout = "15:04:05.000"
	plotLayout     = "15:04:05"
)

// Primary serves live readings, the network test and plot data.
type Primary struct {
	Sensor sensor.Source
	Rows   Rows
	Now    func() time.Time
}

// Respond implements Responder.
func (p *Primary) Respond(ctx context.Context, cmd message.Command) ([]message.Message, error) {
	switch cmd {
	case message.CmdCurrentReading:
		return p.current(), nil
	case message.CmdNetworkActivity:
		return networkActivity(ctx, message.CommandPythonNetwork, p.now, p.Rows.Latest, true)
	case message.CmdPlotData:
		return p.plotData(ctx)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, cmd)
}

func (p *Primary) current() []message.Message {
	res := p.Sensor.Read()
	if !res.OK() {
		return []message.Message{message.SensorStatus{Status: res.Status.Label()}}
	}
	return []message.Message{
		message.CurrentTemperature{Celsius: res.Temperature},
		message.CurrentHumidity{Percent: res.Humidity},
		message.SensorStatus{Status: string(sensor.StatusReady)},
	}
}

func (p *Primary) plotData(ctx context.Context) ([]message.Message, error) {
	rows, err := p.Rows.Latest(ctx, message.MaxDatasets)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []message.Message{message.PlotData{Status: message.StatusFailure}}, nil
	}

	rows = store.Reverse(rows)
	pd := message.PlotData{
		Status:       message.StatusSuccess,
		Times:        make([]string, len(rows)),
		Temperatures: make([]float64, len(rows)),
		Humidities:   make([]float64, len(rows)),
	}
	for i, r := range rows {
		pd.Times[i] = r.RecordedAt.Format(plotLayout)
		pd.Temperatures[i] = r.Temperature
		pd.Humidities[i] = r.Humidity
	}
	return []message.Message{pd}, nil
}

func (p *Primary) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// History serves the last stored reading and its own network test.
type History struct {
	Rows Rows
	Now  func() time.Time
}

// Respond implements Responder. An empty table yields no reply to PR.
func (h *History) Respond(ctx context.Context, cmd message.Command) ([]message.Message, error) {
	switch cmd {
	case message.CmdPreviousReading:
		r, err := h.Rows.Last(ctx)
		if err != nil {
			return nil, err
		}
		return []message.Message{
			message.PrevTemperature{Celsius: r.Temperature},
			message.PrevHumidity{Percent: r.Humidity},
			message.PrevTimestamp{Raw: r.RecordedAt.Format(stampLayout)},
		}, nil
	case message.CmdNetworkActivity:
		return networkActivity(ctx, message.CommandNodeJSNetwork, h.now, h.Rows.Oldest, false)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, cmd)
}

func (h *History) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// networkActivity times one batch query and reports the humidity column.
// withStatus adds the Success/Failure field the primary service sends.
func networkActivity(
	ctx context.Context,
	origin string,
	now func() time.Time,
	query func(context.Context, int) ([]store.Row, error),
	withStatus bool,
) ([]message.Message, error) {
	start := now()
	rows, err := query(ctx, message.MaxDatasets)
	if err != nil {
		return nil, err
	}
	end := now()

	n := message.NetworkActivity{
		Origin:   origin,
		Start:    start.Format(activityLayout),
		End:      end.Format(activityLayout),
		Duration: strconv.FormatFloat(float64(end.Sub(start).Microseconds())/1000, 'f', 1, 64),
	}
	for i, r := range rows {
		n.Datasets = append(n.Datasets, message.Dataset{
			Index: i + 1,
			Value: strconv.FormatFloat(r.Humidity, 'f', 1, 64),
		})
	}
	if withStatus {
		n.Status = message.StatusSuccess
		if len(rows) == 0 {
			n.Status = message.StatusFailure
		}
	}
	return []message.Message{n}, nil
}
