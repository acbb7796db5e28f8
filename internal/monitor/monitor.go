// Package monitor implements the socket-backed client TUI: live and
// previous readings, network activity reports and history charts, all
// driven by replies from the two websocket services.
package monitor

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/tempomatic/internal/chart"
	"github.com/luki/tempomatic/internal/dispatch"
	"github.com/luki/tempomatic/internal/message"
	"github.com/luki/tempomatic/internal/readings"
)

// Sender delivers a command to the services that serve it.
type Sender interface {
	Send(cmd message.Command) error
}

// Options tune the monitor.
type Options struct {
	// Refresh requests a current reading on this period. Zero disables it.
	Refresh time.Duration
	Limits  chart.Limits
	Keys    KeyMap
}

// ── Messages ─────────────────────────────────────────────────────────

type eventMsg struct{ ev dispatch.Event }

type eventsDoneMsg struct{}

type sendErrMsg struct{ err error }

type refreshMsg time.Time

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the socket-backed client.
type Model struct {
	d      *dispatch.Dispatcher
	screen *screen
	sender Sender
	events <-chan dispatch.Event
	opts   Options
	logger *slog.Logger

	width     int
	height    int
	startTime time.Time
}

// New creates the model. Every event read from events is applied by the
// model's dispatcher; Update is the only place state changes.
func New(store *readings.Store, sender Sender, events <-chan dispatch.Event, opts Options, logger *slog.Logger) Model {
	if opts.Keys.Quit.Keys() == nil {
		opts.Keys = DefaultKeyMap
	}
	scr := newScreen(store)
	return Model{
		d:         dispatch.New(store, scr.sinks(), logger),
		screen:    scr,
		sender:    sender,
		events:    events,
		opts:      opts,
		logger:    logger,
		startTime: time.Now(),
	}
}

// ── Commands ─────────────────────────────────────────────────────────

func waitForEvent(events <-chan dispatch.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsDoneMsg{}
		}
		return eventMsg{ev}
	}
}

func (m Model) send(cmd message.Command) tea.Cmd {
	return func() tea.Msg {
		if err := m.sender.Send(cmd); err != nil {
			return sendErrMsg{err}
		}
		return nil
	}
}

func refreshCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForEvent(m.events),
		m.send(message.CmdCurrentReading),
		m.send(message.CmdPreviousReading),
	}
	if m.opts.Refresh > 0 {
		cmds = append(cmds, refreshCmd(m.opts.Refresh))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keys := m.opts.Keys
	switch msg := msg.(type) {

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if m.screen.blocked() {
			if key.Matches(msg, keys.Dismiss) {
				m.screen.dismiss()
			}
			return m, nil
		}
		switch {
		case key.Matches(msg, keys.Current):
			return m, m.send(message.CmdCurrentReading)
		case key.Matches(msg, keys.Previous):
			return m, m.send(message.CmdPreviousReading)
		case key.Matches(msg, keys.Network):
			return m, m.send(message.CmdNetworkActivity)
		case key.Matches(msg, keys.Plot):
			return m, m.send(message.CmdPlotData)
		case key.Matches(msg, keys.ToggleUnit):
			m.d.Handle(dispatch.Toggle{})
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case eventMsg:
		m.d.Handle(msg.ev)
		return m, waitForEvent(m.events)

	case eventsDoneMsg:
		m.logger.Debug("event channel closed")

	case sendErrMsg:
		m.logger.Warn("send failed", "err", msg.err)
		m.screen.status = "Send failed: " + msg.err.Error()

	case refreshMsg:
		return m, tea.Batch(m.send(message.CmdCurrentReading), refreshCmd(m.opts.Refresh))
	}

	return m, nil
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorHeading  = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorValue    = lipgloss.Color("255")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorOk       = lipgloss.Color("78")
	colorWarn     = lipgloss.Color("220")
	colorCrit     = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	sections := []string{m.renderTitleBar(contentWidth)}
	if len(m.screen.notices) > 0 {
		sections = append(sections, m.renderNotice(contentWidth))
	}

	half := contentWidth/2 - 1
	readingsRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderSlots("Current Reading", half, []slotRow{
			{"Temperature", readings.SlotCurrentTemperature},
			{"Humidity", readings.SlotCurrentHumidity},
			{"Status", readings.SlotSensorStatus},
		}),
		m.renderSlots("Previous Reading", half, []slotRow{
			{"Temperature", readings.SlotPrevTemperature},
			{"Humidity", readings.SlotPrevHumidity},
			{"Time", readings.SlotPrevTimestamp},
		}),
	)
	sections = append(sections, readingsRow)

	if m.screen.plot != nil {
		sections = append(sections, chart.Render(*m.screen.plot, m.opts.Limits, contentWidth))
	}

	if len(m.screen.reports) > 0 {
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderReport("Python Network", message.CommandPythonNetwork, half),
			m.renderReport("Node.js Network", message.CommandNodeJSNetwork, half),
		))
	}

	sections = append(sections, m.renderFooter(contentWidth))
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if m.height > 0 {
		lines := strings.Split(content, "\n")
		if len(lines) > m.height {
			lines = lines[:m.height]
		}
		content = strings.Join(lines, "\n")
	}
	return content
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("TEMPOMATIC")

	dim := lipgloss.NewStyle().Foreground(colorDim)
	parts := []string{
		dim.Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.startTime)))),
		lipgloss.NewStyle().Foreground(colorValue).Render(m.d.Store().Unit().String()),
	}
	sep := dim.Render(" │ ")
	right := strings.Join(parts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderNotice(width int) string {
	n := m.screen.notices[0]
	text := " " + n.Text
	if more := len(m.screen.notices) - 1; more > 0 {
		text += fmt.Sprintf("  (+%d)", more)
	}
	return lipgloss.NewStyle().
		Foreground(colorCrit).
		Bold(true).
		Border(lipgloss.ThickBorder()).
		BorderForeground(colorCrit).
		Width(width).
		Padding(0, 1).
		Render(text + "\n" + lipgloss.NewStyle().Foreground(colorDim).Bold(false).Render(" press enter to dismiss"))
}

type slotRow struct {
	label string
	slot  readings.Slot
}

func (m Model) renderSlots(title string, width int, rows []slotRow) string {
	labelS := lipgloss.NewStyle().Foreground(colorLabel).Width(14)
	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(colorHeading).Render(title)}
	for _, r := range rows {
		text := m.screen.slots[r.slot]
		lines = append(lines, labelS.Render(r.label)+lipgloss.NewStyle().Foreground(slotColor(r.slot, text)).Render(text))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func slotColor(slot readings.Slot, text string) lipgloss.Color {
	if slot != readings.SlotSensorStatus {
		return colorValue
	}
	switch text {
	case "Ready":
		return colorOk
	case "Busy", "Warming Up":
		return colorWarn
	case "Read Error", "Offline":
		return colorCrit
	}
	return colorDim
}

func (m Model) renderReport(title, origin string, width int) string {
	dim := lipgloss.NewStyle().Foreground(colorDim)
	val := lipgloss.NewStyle().Foreground(colorValue)
	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(colorHeading).Render(title)}

	r, ok := m.screen.reports[origin]
	if !ok {
		lines = append(lines, dim.Render("no report"))
	} else {
		values := make([]string, len(r.Datasets))
		for i, d := range r.Datasets {
			values[i] = d.Value
		}
		lines = append(lines,
			dim.Render("start ")+val.Render(r.Start)+dim.Render("  end ")+val.Render(r.End),
			dim.Render("duration ")+val.Render(r.Duration+" ms"),
			dim.Render("datasets ")+val.Render(strings.Join(values, " ")),
		)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderFooter(width int) string {
	dim := lipgloss.NewStyle().Foreground(colorDim)
	label := lipgloss.NewStyle().Foreground(colorLabel)

	var keys []string
	for _, b := range m.opts.Keys.footer() {
		h := b.Help()
		keys = append(keys, dim.Render(h.Key)+label.Render(":"+h.Desc))
	}
	right := strings.Join(keys, "  ")
	left := dim.Render(m.screen.toggle)
	if m.screen.status != "" {
		left = lipgloss.NewStyle().Foreground(colorWarn).Render(m.screen.status)
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(left + strings.Repeat(" ", gap) + right)
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	min := d / time.Minute
	d -= min * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, min, s)
	}
	return fmt.Sprintf("%dm%02ds", min, s)
}
