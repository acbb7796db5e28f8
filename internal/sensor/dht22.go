package sensor

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	// MinReadInterval is the DHT22's minimum spacing between reads.
	MinReadInterval = 2 * time.Second

	// offlineAfter is the number of consecutive failed reads after which
	// the sensor is reported Offline instead of Unavailable.
	offlineAfter = 3

	MinTemperature = -40.0
	MaxTemperature = 80.0
	MinHumidity    = 0.0
	MaxHumidity    = 100.0
)

// Result is the outcome of one Read call. Temperature and Humidity are
// only meaningful when Status is StatusReady.
type Result struct {
	Status      Status
	Time        time.Time
	Temperature float64
	Humidity    float64
}

// OK reports whether the result carries a fresh measurement.
func (r Result) OK() bool { return r.Status == StatusReady }

// Reading converts a successful result into a Reading.
func (r Result) Reading() Reading {
	rd := Reading{Status: r.Status.Label()}
	if r.OK() {
		rd.Temperature = Float(r.Temperature)
		rd.Humidity = Float(r.Humidity)
		rd.Timestamp = r.Time.Format("01/02/06 15:04:05")
	}
	return rd
}

// Source is anything that can be polled for a measurement.
type Source interface {
	Read() Result
}

// Probe performs one raw read of the hardware. ok is false when the
// sensor returned no data.
type Probe func() (temperature, humidity float64, ok bool)

// DHT22 wraps a Probe with the sensor's timing and failure rules.
type DHT22 struct {
	mu       sync.Mutex
	probe    Probe
	now      func() time.Time
	lastRead time.Time
	status   Status
	failures int
}

// NewDHT22 creates a sensor that starts warming up now.
func NewDHT22(probe Probe) *DHT22 {
	return newDHT22(probe, time.Now)
}

func newDHT22(probe Probe, now func() time.Time) *DHT22 {
	return &DHT22{
		probe:    probe,
		now:      now,
		lastRead: now(),
		status:   StatusWarmingUp,
	}
}

// Read returns a new measurement if at least MinReadInterval has passed
// since the last successful one. A failed probe is retried once.
func (d *DHT22) Read() Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if now.Sub(d.lastRead) <= MinReadInterval {
		if d.status == StatusWarmingUp {
			return Result{Status: StatusWarmingUp, Time: now}
		}
		d.status = StatusBusy
		return Result{Status: StatusBusy, Time: now}
	}

	temp, hum, ok := d.probe()
	if !ok {
		temp, hum, ok = d.probe()
	}
	if ok {
		d.lastRead = d.now()
		d.status = StatusReady
		d.failures = 0
		return Result{Status: StatusReady, Time: d.lastRead, Temperature: temp, Humidity: hum}
	}

	if d.failures >= offlineAfter {
		d.status = StatusOffline
		return Result{Status: StatusOffline, Time: now}
	}
	d.failures++
	return Result{Status: StatusUnavailable, Time: now}
}

// Status returns the last reported state.
func (d *DHT22) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Simulated produces a random walk around a baseline, failing with the
// given probability. It stands in for the GPIO driver.
type Simulated struct {
	mu          sync.Mutex
	rng         *rand.Rand
	temperature float64
	humidity    float64
	failureRate float64
}

// NewSimulated creates a simulated probe seeded from seed.
func NewSimulated(baseTemp, baseHumidity, failureRate float64, seed int64) *Simulated {
	return &Simulated{
		rng:         rand.New(rand.NewSource(seed)),
		temperature: baseTemp,
		humidity:    baseHumidity,
		failureRate: failureRate,
	}
}

// Probe implements the Probe signature.
func (s *Simulated) Probe() (float64, float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.failureRate {
		return 0, 0, false
	}
	s.temperature = clamp(s.temperature+s.rng.NormFloat64()*0.2, MinTemperature, MaxTemperature)
	s.humidity = clamp(s.humidity+s.rng.NormFloat64()*0.5, MinHumidity, MaxHumidity)
	return s.temperature, s.humidity, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
