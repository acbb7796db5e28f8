package main

import (
	"github.com/spf13/cobra"

	"github.com/luki/tempomatic/internal/bridge"
	"github.com/luki/tempomatic/internal/publish"
	"github.com/luki/tempomatic/internal/queue"
	"github.com/luki/tempomatic/internal/station"
)

var (
	noStore   bool
	resetData bool
)

var stationCmd = &cobra.Command{
	Use:   "station",
	Short: "Log sensor readings",
	Long: `Poll the DHT22 on the configured interval, store each reading and
publish it, plus any alarm, over MQTT.`,
	RunE: runStation,
}

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Forward MQTT readings to the queue",
	RunE:  runBridge,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the reading log table",
	RunE:  runMigrate,
}

func init() {
	stationCmd.Flags().BoolVar(&noStore, "no-store", false, "publish only, skip the database")
	migrateCmd.Flags().BoolVar(&resetData, "reset", false, "delete every stored reading")
	rootCmd.AddCommand(stationCmd, bridgeCmd, migrateCmd)
}

func runStation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	m, err := publish.Connect(cfg.MQTT, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	var st station.Store
	if !noStore {
		s, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer s.Close()
		st = s
	}

	return station.New(newSensor(cfg.Station), st, m, cfg.Station, logger).Run(ctx)
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	q, err := queue.New(ctx, cfg.Queue)
	if err != nil {
		return err
	}
	defer q.Close()

	m, err := publish.Connect(cfg.MQTT, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	logger.Info("bridging", "prefix", cfg.MQTT.TopicPrefix, "queue", cfg.Queue.Kind)
	return bridge.New(m, q, logger).Run(ctx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
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

	if resetData {
		if err := st.Reset(ctx); err != nil {
			return err
		}
		logger.Info("reading log cleared")
	}
	n, err := st.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info("migrated", "readings", n)
	return nil
}
