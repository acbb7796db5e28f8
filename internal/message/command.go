package message

import (
	"errors"
	"fmt"
	"strings"
)

// Command is a plain-text request sent from a client to a service.
type Command string

const (
	CmdCurrentReading  Command = "CR"
	CmdPreviousReading Command = "PR"
	CmdNetworkActivity Command = "NA"
	CmdPlotData        Command = "PD"
)

// ErrUnknownCommand is returned by ParseCommand for unsupported requests.
var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand validates a received text frame.
func ParseCommand(s string) (Command, error) {
	c := Command(strings.TrimSpace(s))
	switch c {
	case CmdCurrentReading, CmdPreviousReading, CmdNetworkActivity, CmdPlotData:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

func (c Command) String() string { return string(c) }
