package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/coinscope/internal/application/scan"
	"github.com/sawpanic/coinscope/internal/data/cache"
	apihttp "github.com/sawpanic/coinscope/internal/interfaces/http"
	"github.com/sawpanic/coinscope/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	strategy   string
	addr       string
	noSchedule bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest rankings over HTTP and rescan on a schedule",
		Long: `Start the read-only API (/api/v1/rankings, /api/v1/stats, /health,
/metrics, /ws) and run scans on the configured cron schedule. Each completed
scan is persisted when a database is configured and pushed to websocket
clients.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, f)
		},
	}
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "", "Strategy for scheduled scans (default from config)")
	cmd.Flags().StringVar(&f.addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&f.noSchedule, "no-schedule", false, "Serve stored results without scanning")
	return cmd
}

func runServe(parent context.Context, root *rootOptions, f *serveFlags) error {
	cfg := root.cfg
	if f.addr != "" {
		cfg.HTTP.Addr = f.addr
	}
	strategy := f.strategy
	if strategy == "" {
		strategy = cfg.Scan.Strategy
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := apihttp.NewMetricsRegistry()
	a, err := newApp(ctx, cfg, appOptions{live: true, metrics: metrics})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := apihttp.NewServer(cfg.HTTP, apihttp.Options{
		Repo:     a.repo,
		Metrics:  metrics,
		Statuses: a.statuses,
		Version:  version,
	})
	a.pipeline.Subscribe(srv.Publish)
	if ttl, ok := a.cache.(*cache.TTLCache); ok {
		a.pipeline.Subscribe(func(*scan.Result) { metrics.ObserveCache(ttl.Stats()) })
	}

	if cfg.Schedule.Enabled && !f.noSchedule {
		sched, err := scheduler.New(cfg.Schedule.Cron, func(ctx context.Context) error {
			_, err := a.pipeline.Run(ctx, scan.Options{Strategy: strategy})
			return err
		}, scheduler.Options{Timeout: scanTimeout, RunOnStart: true})
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	return nil
}
