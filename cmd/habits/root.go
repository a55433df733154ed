package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"habitcore/internal/config"
	"habitcore/internal/core"
	"habitcore/internal/logging"
)

// app holds what a single invocation needs once configuration is resolved.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    core.EntryStore
	svc      *core.Service
	registry *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "habits",
		Short:         "Track daily habits and streaks",
		Long:          "habits records which habits you completed each day and reports completion history and streaks.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default .habits.yaml)")
	flags.String("storage", "", "storage driver: memory|sqlite|postgres|redis|blob")
	flags.String("sqlite-path", "", "sqlite database path")
	flags.String("blob-root", "", "root directory for the fs blob driver")
	flags.String("log-level", "", "log level: debug|info|warn|error")
	flags.String("log-format", "", "log format: console|json")
	bindFlag(root, "storage.driver", "storage")
	bindFlag(root, "storage.sqlite_path", "sqlite-path")
	bindFlag(root, "blob.fs_root", "blob-root")
	bindFlag(root, "log.level", "log-level")
	bindFlag(root, "log.format", "log-format")

	root.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newDeleteCmd(a),
		newToggleCmd(a),
		newStatusCmd(a),
		newHistoryCmd(a),
		newStreakCmd(a),
		newWatchCmd(a),
	)
	return root
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	_ = viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag))
}

func initConfig(cmd *cobra.Command) {
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".habits")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}
	config.BindEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

func (a *app) open(cmd *cobra.Command) error {
	initConfig(cmd)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.logger = logger

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := core.OpenEntryStore(ctx, cfg.StorageOptions())
	if err != nil {
		return err
	}
	a.store = store

	opts := []core.ServiceOption{core.WithLogger(logger.Named("tracker"))}
	if cfg.Metrics.Addr != "" {
		a.registry = prometheus.NewRegistry()
		prom, err := core.NewPrometheusMetricsRecorder(a.registry)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithMetrics(core.CombineMetrics(prom, core.NewExpvarMetricsRecorder(""))))
	}
	a.svc = core.NewService(ctx, store, opts...)
	return nil
}

func (a *app) close() error {
	var err error
	if a.store != nil {
		err = core.CloseEntryStore(a.store)
		a.store = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}
