package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/luki/tempomatic/internal/config"
	"github.com/luki/tempomatic/internal/publish"
	"github.com/luki/tempomatic/internal/sensor"
	"github.com/luki/tempomatic/internal/server"
	"github.com/luki/tempomatic/internal/station"
	"github.com/luki/tempomatic/internal/store"
)

var withStation bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the primary websocket service",
	Long: `Start the primary service. It answers current reading, network
test and plot data requests from the DHT22 and the reading log.`,
	RunE: runServe,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Start the history websocket service",
	Long:  `Start the history service. It answers previous reading and network test requests from the reading log.`,
	RunE:  runHistory,
}

func init() {
	serveCmd.Flags().BoolVar(&withStation, "station", false, "also log readings from the same sensor")
	rootCmd.AddCommand(serveCmd, historyCmd)
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Database.DSN, store.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	logger.Debug("database ready")
	return st, nil
}

// newSensor returns the DHT22 driven by the simulated probe.
func newSensor(cfg config.StationConfig) *sensor.DHT22 {
	sim := sensor.NewSimulated(cfg.BaseTemperature, cfg.BaseHumidity, cfg.FailureRate, time.Now().UnixNano())
	return sensor.NewDHT22(sim.Probe)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	dht := newSensor(cfg.Station)
	log := logger.With("service", "primary")
	svc := server.NewService("primary", &server.Primary{Sensor: dht, Rows: st}, cfg.Primary, log)
	h := server.Wrap(server.NewRouter(cfg.Primary.Path, svc, st), log)

	if !withStation {
		return server.ListenAndServe(ctx, cfg.Primary.Addr, h, cfg.Primary, log)
	}

	var pub station.Publisher
	if m, err := publish.Connect(cfg.MQTT, logger); err != nil {
		logger.Warn("mqtt unavailable, readings will not be published", "err", err)
	} else {
		defer m.Close()
		pub = m
	}
	stn := station.New(dht, st, pub, cfg.Station, logger.With("component", "station"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 2)
	go func() { errc <- server.ListenAndServe(ctx, cfg.Primary.Addr, h, cfg.Primary, log) }()
	go func() { errc <- stn.Run(ctx) }()

	first := <-errc
	cancel()
	second := <-errc
	return ignoreCanceled(first, second)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	log := logger.With("service", "history")
	svc := server.NewService("history", &server.History{Rows: st}, cfg.History, log)
	h := server.Wrap(server.NewRouter(cfg.History.Path, svc, st), log)
	return server.ListenAndServe(ctx, cfg.History.Addr, h, cfg.History, log)
}

// ignoreCanceled joins errs, dropping context cancellation.
func ignoreCanceled(errs ...error) error {
	var out []error
	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			out = append(out, err)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return fmt.Errorf("serve: %w", errors.Join(out...))
}
