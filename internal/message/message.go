// Package message defines the wire messages exchanged between the
// tempomatic services and their clients.
//
// Inbound frames are JSON objects whose field groups are independent: a
// single frame may carry a current temperature and a sensor status at the
// same time. Decode splits a frame into a list of typed variants so that
// consumers switch on the variant type instead of probing fields.
package message

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Field names as they appear on the wire.
const (
	FieldCurrentTemperature = "currentTemperature"
	FieldCurrentHumidity    = "currentHumidity"
	FieldSensorStatus       = "sensorStatus"
	FieldPrevTemperature    = "prevTemperature"
	FieldPrevHumidity       = "prevHumidity"
	FieldTimestamp          = "timestamp"
	FieldCommand            = "command"
	FieldStatus             = "status"
	FieldTimes              = "times"
	FieldTemperatures       = "temperatures"
	FieldHumidities         = "humidities"
	FieldStartTime          = "starttime"
	FieldEndTime            = "endtime"
	FieldDuration           = "duration"
)

// MaxDatasets is the number of dataset fields carried by a network
// activity report.
const MaxDatasets = 10

// StatusSuccess marks a successful reply. Any other value is a failure.
const StatusSuccess = "Success"

// StatusFailure is what the services send when a query returned no rows.
const StatusFailure = "Failure"

// Network activity report origins and the plot reply command.
const (
	CommandPythonNetwork = "PythonNetwork"
	CommandNodeJSNetwork = "NodeJSNetwork"
	CommandPlotData      = "plotData"
)

// Message is one variant of an inbound frame.
type Message interface {
	fields() map[string]any
}

// CurrentTemperature is a live reading from the primary service.
type CurrentTemperature struct {
	Celsius float64
}

// CurrentHumidity is a live relative humidity in percent.
type CurrentHumidity struct {
	Percent float64
}

// SensorStatus is the literal sensor state reported by the primary service.
type SensorStatus struct {
	Status string
}

// PrevTemperature is the last stored temperature from the history service.
type PrevTemperature struct {
	Celsius float64
}

// PrevHumidity is the last stored humidity from the history service.
type PrevHumidity struct {
	Percent float64
}

// PrevTimestamp is the stored timestamp of the previous reading, as sent.
type PrevTimestamp struct {
	Raw string
}

// TimeOfDay returns the second whitespace separated token of the
// timestamp ("09/15/19 11:11:52" -> "11:11:52"). A timestamp without a
// second token is returned unchanged.
func (p PrevTimestamp) TimeOfDay() string {
	parts := strings.Fields(p.Raw)
	if len(parts) < 2 {
		return p.Raw
	}
	return parts[1]
}

// Dataset is one numbered value of a network activity report.
type Dataset struct {
	Index int // 1-based
	Value string
}

// NetworkActivity is a timing report of a service's last batch read.
type NetworkActivity struct {
	Origin   string // CommandPythonNetwork or CommandNodeJSNetwork
	Status   string
	Datasets []Dataset
	Start    string
	End      string
	Duration string // milliseconds
}

// Success reports whether the service marked the report successful. Reports
// from the history service carry no status and always count as successful.
func (n NetworkActivity) Success() bool {
	if n.Origin == CommandNodeJSNetwork && n.Status == "" {
		return true
	}
	return n.Status == StatusSuccess
}

// PlotData is a full replacement of the history series. Temperatures are
// in Celsius.
type PlotData struct {
	Status       string
	Times        []string
	Temperatures []float64
	Humidities   []float64
}

// Success reports whether the reply carries data.
func (p PlotData) Success() bool { return p.Status == StatusSuccess }

func (m CurrentTemperature) fields() map[string]any {
	return map[string]any{FieldCurrentTemperature: formatDecimal(m.Celsius)}
}

func (m CurrentHumidity) fields() map[string]any {
	return map[string]any{FieldCurrentHumidity: formatDecimal(m.Percent)}
}

func (m SensorStatus) fields() map[string]any {
	return map[string]any{FieldSensorStatus: m.Status}
}

func (m PrevTemperature) fields() map[string]any {
	return map[string]any{FieldPrevTemperature: formatDecimal(m.Celsius)}
}

func (m PrevHumidity) fields() map[string]any {
	return map[string]any{FieldPrevHumidity: formatDecimal(m.Percent)}
}

func (m PrevTimestamp) fields() map[string]any {
	return map[string]any{FieldTimestamp: m.Raw}
}

func (m NetworkActivity) fields() map[string]any {
	f := map[string]any{FieldCommand: m.Origin}
	if m.Status != "" {
		f[FieldStatus] = m.Status
	}
	if m.Start != "" {
		f[FieldStartTime] = m.Start
	}
	if m.End != "" {
		f[FieldEndTime] = m.End
	}
	if m.Duration != "" {
		f[FieldDuration] = m.Duration
	}
	for _, d := range m.Datasets {
		f[datasetKey(d.Index)] = d.Value
	}
	return f
}

func (m PlotData) fields() map[string]any {
	times := m.Times
	if times == nil {
		times = []string{}
	}
	temps := m.Temperatures
	if temps == nil {
		temps = []float64{}
	}
	hums := m.Humidities
	if hums == nil {
		hums = []float64{}
	}
	return map[string]any{
		FieldCommand:      CommandPlotData,
		FieldStatus:       m.Status,
		FieldTimes:        times,
		FieldTemperatures: temps,
		FieldHumidities:   hums,
	}
}

// Encode merges the variants into one JSON frame. Later variants win on
// field collisions.
func Encode(msgs ...Message) ([]byte, error) {
	frame := make(map[string]any)
	for _, m := range msgs {
		for k, v := range m.fields() {
			frame[k] = v
		}
	}
	return json.Marshal(frame)
}

// Decode splits a JSON frame into its variants, in a fixed order:
// current temperature, current humidity, sensor status, previous
// temperature, previous humidity, previous timestamp, network activity,
// plot data. Field groups that are absent or malformed are skipped. An
// error is returned only when the frame is not a JSON object.
func Decode(data []byte) ([]Message, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	f := frame(raw)

	var out []Message
	if v, ok := f.decimal(FieldCurrentTemperature); ok {
		out = append(out, CurrentTemperature{Celsius: v})
	}
	if v, ok := f.decimal(FieldCurrentHumidity); ok {
		out = append(out, CurrentHumidity{Percent: v})
	}
	if v, ok := f.text(FieldSensorStatus); ok {
		out = append(out, SensorStatus{Status: v})
	}
	if v, ok := f.decimal(FieldPrevTemperature); ok {
		out = append(out, PrevTemperature{Celsius: v})
	}
	if v, ok := f.decimal(FieldPrevHumidity); ok {
		out = append(out, PrevHumidity{Percent: v})
	}
	if v, ok := f.text(FieldTimestamp); ok {
		out = append(out, PrevTimestamp{Raw: v})
	}

	cmd, _ := f.text(FieldCommand)
	switch cmd {
	case CommandPythonNetwork, CommandNodeJSNetwork:
		out = append(out, f.networkActivity(cmd))
	case CommandPlotData:
		if p, ok := f.plotData(); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type frame map[string]json.RawMessage

func (f frame) present(key string) (json.RawMessage, bool) {
	v, ok := f[key]
	if !ok {
		return nil, false
	}
	s := strings.TrimSpace(string(v))
	if s == "" || s == "null" || s == `""` {
		return nil, false
	}
	return v, true
}

func (f frame) decimal(key string) (float64, bool) {
	v, ok := f.present(key)
	if !ok {
		return 0, false
	}
	d, err := parseDecimal(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (f frame) text(key string) (string, bool) {
	v, ok := f.present(key)
	if !ok {
		return "", false
	}
	s, err := parseText(v)
	if err != nil {
		return "", false
	}
	return s, true
}

func (f frame) networkActivity(origin string) NetworkActivity {
	n := NetworkActivity{Origin: origin}
	n.Status, _ = f.text(FieldStatus)
	n.Start, _ = f.text(FieldStartTime)
	n.End, _ = f.text(FieldEndTime)
	n.Duration, _ = f.text(FieldDuration)
	for i := 1; i <= MaxDatasets; i++ {
		if v, ok := f.text(datasetKey(i)); ok {
			n.Datasets = append(n.Datasets, Dataset{Index: i, Value: v})
		}
	}
	return n
}

func (f frame) plotData() (PlotData, bool) {
	p := PlotData{}
	p.Status, _ = f.text(FieldStatus)
	if !p.Success() {
		return p, true
	}

	var times []json.RawMessage
	var temps, hums []json.RawMessage
	if err := f.array(FieldTimes, &times); err != nil {
		return p, false
	}
	if err := f.array(FieldTemperatures, &temps); err != nil {
		return p, false
	}
	if err := f.array(FieldHumidities, &hums); err != nil {
		return p, false
	}
	if len(times) != len(temps) || len(temps) != len(hums) {
		return p, false
	}

	p.Times = make([]string, len(times))
	p.Temperatures = make([]float64, len(temps))
	p.Humidities = make([]float64, len(hums))
	for i := range times {
		var err error
		if p.Times[i], err = parseText(times[i]); err != nil {
			return p, false
		}
		if p.Temperatures[i], err = parseDecimal(temps[i]); err != nil {
			return p, false
		}
		if p.Humidities[i], err = parseDecimal(hums[i]); err != nil {
			return p, false
		}
	}
	return p, true
}

func (f frame) array(key string, dst *[]json.RawMessage) error {
	v, ok := f[key]
	if !ok {
		return fmt.Errorf("missing %s", key)
	}
	return json.Unmarshal(v, dst)
}

// parseDecimal accepts a JSON number or a string holding one.
func parseDecimal(v json.RawMessage) (float64, error) {
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.Float64()
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, fmt.Errorf("not a decimal: %s", v)
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// parseText accepts a JSON string, or a number rendered as written.
func parseText(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", fmt.Errorf("not text: %s", v)
	}
	return n.String(), nil
}

func datasetKey(i int) string {
	return "dataset" + strconv.Itoa(i)
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// Keys returns the sorted field names of an encoded frame. Used by tests
// and debug logging.
func Keys(data []byte) []string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
