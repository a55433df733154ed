package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"habitcore/internal/core"
	"habitcore/internal/statusserver"
	"habitcore/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow changes made by other processes and serve status",
		Long: "watch reloads the tracker whenever the local state file changes and, when a metrics " +
			"address is configured, serves /healthz, /metrics, /debug/vars, /habits and /summary.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runWatch(ctx, cmd)
		},
	}
	cmd.Flags().String("metrics-addr", "", "listen address for the status server (e.g. :9090)")
	_ = viper.BindPFlag("metrics.addr", cmd.Flags().Lookup("metrics-addr"))
	return cmd
}

func (a *app) runWatch(ctx context.Context, cmd *cobra.Command) error {
	path, ok := core.LocalStatePath(a.store)
	if !ok && a.cfg.Metrics.Addr == "" {
		return errors.New("watch needs a file-backed store (sqlite or fs blob) or --metrics-addr")
	}
	g, ctx := errgroup.WithContext(ctx)
	if ok {
		w, err := watch.New(path, a.svc,
			watch.WithLogger(a.logger.Named("watch")),
			watch.WithNotify(func(err error) {
				if err == nil {
					s := a.svc.Summary(1)
					fmt.Fprintf(cmd.OutOrStdout(), "reloaded: %d habits, current streak %d\n", len(a.svc.ListHabits()), s.CurrentStreak)
				}
			}),
		)
		if err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", w.Path())
		g.Go(func() error { return w.Run(ctx) })
	}
	if a.cfg.Metrics.Addr != "" {
		router := statusserver.NewRouter(a.svc, statusserver.Options{
			Gatherer:    a.registry,
			Logger:      a.logger.Named("http"),
			HistoryDays: a.cfg.HistoryDays,
		})
		g.Go(func() error {
			return statusserver.Serve(ctx, a.cfg.Metrics.Addr, router, a.logger.Named("http"))
		})
	}
	err := g.Wait()
	a.logger.Debug("watch stopped", zap.Error(err))
	return err
}
