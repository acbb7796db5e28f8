// Package viewer implements the queue-backed client TUI: readings popped
// off the queue fill a rolling table of the last twenty, one at a time or
// drained in bulk.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/tempomatic/internal/dispatch"
	"github.com/luki/tempomatic/internal/history"
	"github.com/luki/tempomatic/internal/queue"
	"github.com/luki/tempomatic/internal/readings"
)

// Drainer pops readings off the queue and posts them as events.
type Drainer interface {
	ReceiveOne(ctx context.Context) error
	DrainAll(ctx context.Context) (int, error)
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorHeading  = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorWarn     = lipgloss.Color("220")
	colorCrit     = lipgloss.Color("196")
)

// ── Messages ─────────────────────────────────────────────────────────

type eventMsg struct{ ev dispatch.Event }

type eventsDoneMsg struct{}

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model of the queue viewer.
type Model struct {
	ctx     context.Context
	d       *dispatch.Dispatcher
	drainer Drainer
	events  chan dispatch.Event
	keys    KeyMap
	logger  *slog.Logger

	// display state, written by the dispatcher through the sinks
	view *table

	busy   bool // a receive or drain has not settled yet
	width  int
	height int
}

// table is the viewer's sink set.
type table struct {
	rows      []history.Row
	remaining int
	toggle    string
	notices   []dispatch.Notice
	status    string
}

func (t *table) RenderRows(rows []history.Row)              { t.rows = rows }
func (t *table) RenderRemaining(n int)                      { t.remaining = n }
func (t *table) RenderToggle(label string)                  { t.toggle = label }
func (t *table) RenderSlot(slot readings.Slot, text string) {}

func (t *table) Notify(n dispatch.Notice) {
	if n.Blocking {
		t.notices = append(t.notices, n)
		return
	}
	t.status = n.Text
}

// New creates the viewer. drainer must post to events; the viewer posts a
// dispatch.Settled after each queue call on the same channel. ctx bounds
// every queue call.
func New(ctx context.Context, store *readings.Store, drainer Drainer, events chan dispatch.Event, logger *slog.Logger) Model {
	t := &table{toggle: store.ToggleLabel()}
	sinks := dispatch.Sinks{Render: t, Table: t, Notify: t}
	return Model{
		ctx:     ctx,
		d:       dispatch.New(store, sinks, logger),
		drainer: drainer,
		events:  events,
		keys:    DefaultKeyMap,
		logger:  logger,
		view:    t,
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

func (m Model) receiveOne() tea.Cmd {
	return func() tea.Msg {
		err := m.drainer.ReceiveOne(m.ctx)
		n := 0
		if err == nil {
			n = 1
		}
		m.settle(n, err)
		return nil
	}
}

func (m Model) drainAll() tea.Cmd {
	return func() tea.Msg {
		n, err := m.drainer.DrainAll(m.ctx)
		m.settle(n, err)
		return nil
	}
}

// settle queues the end marker behind every event the call posted.
func (m Model) settle(n int, err error) {
	select {
	case m.events <- dispatch.Settled{N: n, Err: err}:
	case <-m.ctx.Done():
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if len(m.view.notices) > 0 {
			if key.Matches(msg, m.keys.Dismiss) {
				m.view.notices = m.view.notices[1:]
			}
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.ToggleUnit):
			m.d.Handle(dispatch.Toggle{})
		case m.busy:
			// one queue round trip at a time
		case key.Matches(msg, m.keys.Next):
			m.busy = true
			m.view.status = ""
			return m, m.receiveOne()
		case key.Matches(msg, m.keys.DrainAll):
			m.busy = true
			m.view.status = ""
			return m, m.drainAll()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case eventMsg:
		if done, ok := msg.ev.(dispatch.Settled); ok {
			m.settled(done)
		}
		m.d.Handle(msg.ev)
		return m, waitForEvent(m.events)

	case eventsDoneMsg:
		m.logger.Debug("event channel closed")
	}

	return m, nil
}

func (m *Model) settled(done dispatch.Settled) {
	m.busy = false
	switch {
	case done.Err == nil:
		m.logger.Debug("received", "readings", done.N)
	case errors.Is(done.Err, queue.ErrEmpty):
		// the drainer already raised the notice
	case errors.Is(done.Err, context.Canceled):
	default:
		m.logger.Error("queue receive failed", "err", done.Err)
		m.view.status = "Queue error: " + done.Err.Error()
	}
}

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	sections := []string{m.renderTitle(contentWidth)}
	if len(m.view.notices) > 0 {
		sections = append(sections, m.renderNotice(contentWidth))
	}
	sections = append(sections, m.renderTable(contentWidth), m.renderFooter(contentWidth))
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

func (m Model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().Bold(true).Foreground(colorTitleFg).Render("TEMPOMATIC QUEUE")
	dim := lipgloss.NewStyle().Foreground(colorDim)

	right := dim.Render(fmt.Sprintf("%d remaining", m.view.remaining))
	if m.busy {
		right = lipgloss.NewStyle().Foreground(colorWarn).Render("receiving… ") + right
	}

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
	text := " " + m.view.notices[0].Text
	if more := len(m.view.notices) - 1; more > 0 {
		text += fmt.Sprintf("  (+%d)", more)
	}
	return lipgloss.NewStyle().
		Foreground(colorCrit).
		Bold(true).
		Border(lipgloss.ThickBorder()).
		BorderForeground(colorCrit).
		Width(width).
		Padding(0, 1).
		Render(text)
}

func (m Model) renderTable(width int) string {
	head := lipgloss.NewStyle().Bold(true).Foreground(colorHeading)
	cell := lipgloss.NewStyle().Foreground(colorLabel)
	num := lipgloss.NewStyle().Foreground(colorDim).Width(4).Align(lipgloss.Right)
	col := func(s lipgloss.Style, w int) lipgloss.Style { return s.Width(w).PaddingLeft(2) }

	lines := []string{
		num.Render("#") + col(head, 16).Render("Temperature") + col(head, 12).Render("Humidity") + col(head, 24).Render("Timestamp"),
	}
	if len(m.view.rows) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(colorDim).Render("  no readings yet, press n or a"))
	}
	for _, r := range m.view.rows {
		lines = append(lines, num.Render(fmt.Sprint(r.Number))+
			col(cell, 16).Render(r.Temperature)+
			col(cell, 12).Render(r.Humidity)+
			col(cell, 24).Render(truncate(r.Timestamp, 22)))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter(width int) string {
	dim := lipgloss.NewStyle().Foreground(colorDim)
	label := lipgloss.NewStyle().Foreground(colorLabel)

	var keys []string
	for _, b := range []key.Binding{m.keys.Next, m.keys.DrainAll, m.keys.ToggleUnit, m.keys.Quit} {
		h := b.Help()
		keys = append(keys, dim.Render(h.Key)+label.Render(":"+h.Desc))
	}
	right := strings.Join(keys, "  ")
	left := dim.Render(m.view.toggle)
	if m.view.status != "" {
		left = lipgloss.NewStyle().Foreground(colorWarn).Render(m.view.status)
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

// ── Helpers ──────────────────────────────────────────────────────────

func truncate(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 1 {
		return string(r[:w])
	}
	return string(r[:w-1]) + "…"
}
