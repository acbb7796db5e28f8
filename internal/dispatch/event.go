package dispatch

import (
	"github.com/luki/tempomatic/internal/message"
	"github.com/luki/tempomatic/internal/sensor"
)

// Source identifies where an event came from.
type Source string

const (
	SourcePrimary Source = "primary"
	SourceHistory Source = "history"
	SourceQueue   Source = "queue"
)

// Event is one unit of work for the dispatch loop.
type Event interface {
	isEvent()
}

// Inbound carries every variant decoded from one frame.
type Inbound struct {
	Source Source
	Msgs   []message.Message
}

// Toggle is the user flipping the unit system.
type Toggle struct{}

// Closed reports that a transport went away. No reconnect is attempted.
type Closed struct {
	Source Source
	Err    error
}

// Queued is one reading popped off the queue.
type Queued struct {
	Reading sensor.Reading
}

// Remaining updates the queue's remaining-count display.
type Remaining struct {
	N int
}

// Failure carries a notice raised outside the loop, e.g. by the drainer.
type Failure struct {
	Notice Notice
}

// Settled follows the last event a producer posted for one request, so
// the loop knows every event of that request has been applied.
type Settled struct {
	N   int
	Err error
}

func (Inbound) isEvent()   {}
func (Toggle) isEvent()    {}
func (Closed) isEvent()    {}
func (Queued) isEvent()    {}
func (Remaining) isEvent() {}
func (Failure) isEvent()   {}
func (Settled) isEvent()   {}

// NoticeKind classifies user-visible failures.
type NoticeKind int

const (
	NoticeTransportClosed NoticeKind = iota
	NoticeEmpty
	NoticeDeleteFailed
)

// Notice is a user-visible message. Blocking notices must be acknowledged
// before the display continues.
type Notice struct {
	Kind     NoticeKind
	Text     string
	Blocking bool
}

// Targets returns the services a command is sent to: plot and current
// reading requests go to the primary service, previous reading requests
// to the history service and network activity requests to both.
func Targets(c message.Command) []Source {
	switch c {
	case message.CmdCurrentReading, message.CmdPlotData:
		return []Source{SourcePrimary}
	case message.CmdPreviousReading:
		return []Source{SourceHistory}
	case message.CmdNetworkActivity:
		return []Source{SourcePrimary, SourceHistory}
	}
	return nil
}

func closedText(s Source) string {
	switch s {
	case SourcePrimary:
		return "Primary service connection closed"
	case SourceHistory:
		return "History service connection closed"
	}
	return string(s) + " connection closed"
}
