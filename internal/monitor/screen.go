package monitor

import (
	"github.com/luki/tempomatic/internal/dispatch"
	"github.com/luki/tempomatic/internal/message"
	"github.com/luki/tempomatic/internal/readings"
)

// screen is what the dispatcher renders into. The model draws it in View.
type screen struct {
	slots   map[readings.Slot]string
	toggle  string
	plot    *dispatch.Plot
	reports map[string]message.NetworkActivity
	// pending blocking notices, oldest first
	notices []dispatch.Notice
	status  string
}

func newScreen(st *readings.Store) *screen {
	s := &screen{
		slots:   make(map[readings.Slot]string),
		toggle:  st.ToggleLabel(),
		reports: make(map[string]message.NetworkActivity),
	}
	for _, slot := range readings.Slots {
		s.slots[slot] = st.Text(slot)
	}
	return s
}

func (s *screen) RenderSlot(slot readings.Slot, text string) { s.slots[slot] = text }
func (s *screen) RenderToggle(label string)                  { s.toggle = label }

func (s *screen) Plot(p dispatch.Plot) {
	s.plot = &p
}

func (s *screen) Report(r message.NetworkActivity) {
	s.reports[r.Origin] = r
}

func (s *screen) Notify(n dispatch.Notice) {
	if n.Blocking {
		s.notices = append(s.notices, n)
		return
	}
	s.status = n.Text
}

// blocked reports whether a notice is waiting for acknowledgement.
func (s *screen) blocked() bool { return len(s.notices) > 0 }

func (s *screen) dismiss() {
	if len(s.notices) > 0 {
		s.notices = s.notices[1:]
	}
}

func (s *screen) sinks() dispatch.Sinks {
	return dispatch.Sinks{Render: s, Plot: s, Report: s, Notify: s}
}
