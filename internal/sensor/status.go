package sensor

// Status is the state of a DHT22 sensor as reported by Read.
type Status string

const (
	StatusWarmingUp   Status = "Warming Up"
	StatusReady       Status = "Ready"
	StatusBusy        Status = "Busy"
	StatusUnavailable Status = "Unavailable"
	StatusOffline     Status = "Offline"
)

// statusLabels maps a status to the text shown to clients when it differs
// from the status name.
var statusLabels = map[Status]string{
	StatusUnavailable: "Read Error",
}

// Label returns the client-facing text for a status.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}
