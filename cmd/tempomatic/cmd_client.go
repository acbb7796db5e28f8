package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/luki/tempomatic/internal/chart"
	"github.com/luki/tempomatic/internal/config"
	"github.com/luki/tempomatic/internal/dispatch"
	"github.com/luki/tempomatic/internal/monitor"
	"github.com/luki/tempomatic/internal/queue"
	"github.com/luki/tempomatic/internal/readings"
	"github.com/luki/tempomatic/internal/transport"
	"github.com/luki/tempomatic/internal/viewer"
)

var refresh time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Open the websocket client",
	Long: `Connect to the primary and history services and show live
readings, network test reports and charts.`,
	RunE: runMonitor,
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Open the queue client",
	Long:  `Pop readings off the configured queue into a rolling table of the last twenty.`,
	RunE:  runQueue,
}

func init() {
	monitorCmd.Flags().DurationVar(&refresh, "refresh", 0, "request a current reading on this period, e.g. 5s")
	rootCmd.AddCommand(monitorCmd, queueCmd)
}

// newReadings returns client state in the configured initial unit.
func newReadings(cfg config.ClientConfig) *readings.Store {
	st := readings.New()
	if strings.EqualFold(cfg.Unit, "F") {
		st.ToggleUnit()
	}
	return st
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts := monitor.Options{
		Refresh: refresh,
		Keys:    monitor.DefaultKeyMap,
		Limits: chart.Limits{
			TemperatureHigh: cfg.Station.AlarmTemperatureHigh,
			HumidityHigh:    cfg.Station.AlarmHumidityHigh,
		},
	}

	logger, closer, err := newTUILogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	primary, err := transport.Dial(ctx, dispatch.SourcePrimary, cfg.Client.PrimaryURL, logger)
	if err != nil {
		return err
	}
	hist, err := transport.Dial(ctx, dispatch.SourceHistory, cfg.Client.HistoryURL, logger)
	if err != nil {
		primary.Close()
		return err
	}
	client := transport.NewClient(primary, hist)
	defer client.Close()

	events := make(chan dispatch.Event, 64)
	go client.Listen(ctx, events)

	m := monitor.New(newReadings(cfg.Client), client, events, opts, logger)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}

func runQueue(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := newTUILogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	q, err := queue.New(ctx, cfg.Queue)
	if err != nil {
		return err
	}
	defer q.Close()

	events := make(chan dispatch.Event, 64)
	drainer := queue.NewDrainer(q, events, logger.With("queue", cfg.Queue.Kind))

	m := viewer.New(ctx, newReadings(cfg.Client), drainer, events, logger)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("queue: %w", err)
	}
	return nil
}
