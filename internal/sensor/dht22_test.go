package sensor

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time         { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestDHT22WarmUpThenReady(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 2, 21, 14, 0, 0, 0, time.Local)}
	d := newDHT22(func() (float64, float64, bool) { return 21.5, 48.0, true }, clock.now)

	if r := d.Read(); r.Status != StatusWarmingUp {
		t.Fatalf("first read: got %q, want %q", r.Status, StatusWarmingUp)
	}

	clock.advance(3 * time.Second)
	r := d.Read()
	if !r.OK() || r.Temperature != 21.5 || r.Humidity != 48.0 {
		t.Fatalf("read after warm up: got %+v", r)
	}

	clock.advance(time.Second)
	if r := d.Read(); r.Status != StatusBusy {
		t.Errorf("read within interval: got %q, want %q", r.Status, StatusBusy)
	}
}

func TestDHT22GoesOffline(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 2, 21, 14, 0, 0, 0, time.Local)}
	calls := 0
	d := newDHT22(func() (float64, float64, bool) {
		calls++
		return 0, 0, false
	}, clock.now)

	var statuses []Status
	for i := 0; i < 5; i++ {
		clock.advance(3 * time.Second)
		statuses = append(statuses, d.Read().Status)
	}

	want := []Status{StatusUnavailable, StatusUnavailable, StatusUnavailable, StatusOffline, StatusOffline}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("read %d: got %q, want %q", i, statuses[i], want[i])
		}
	}
	if calls != 10 {
		t.Errorf("each failed read should retry once: got %d probe calls, want 10", calls)
	}
}

func TestResultReading(t *testing.T) {
	ts := time.Date(2019, 9, 15, 11, 11, 52, 0, time.Local)
	r := Result{Status: StatusReady, Time: ts, Temperature: 22.3, Humidity: 55.1}.Reading()
	if r.Timestamp != "09/15/19 11:11:52" {
		t.Errorf("timestamp: got %q", r.Timestamp)
	}
	if !r.HasTemperature() || *r.Temperature != 22.3 {
		t.Errorf("temperature: got %+v", r.Temperature)
	}

	failed := Result{Status: StatusUnavailable}.Reading()
	if failed.HasTemperature() || failed.Status != "Read Error" {
		t.Errorf("failed read: got %+v", failed)
	}
}

func TestSimulatedStaysInRange(t *testing.T) {
	s := NewSimulated(79.9, 99.9, 0, 1)
	for i := 0; i < 500; i++ {
		temp, hum, ok := s.Probe()
		if !ok {
			t.Fatal("failure rate 0 should never fail")
		}
		if temp < MinTemperature || temp > MaxTemperature || hum < MinHumidity || hum > MaxHumidity {
			t.Fatalf("out of range: %v %v", temp, hum)
		}
	}
}
