package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allinsc2/ladder-sync/internal/handlers"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run passes on a schedule and serve the status endpoints",
	Long: `Runs a pass at startup and then on the SCHEDULE cron spec, skipping a tick
while the previous pass is still running. Serves /healthz, /readyz, /metrics
and /api/v1/runs/latest on PORT until interrupted.`,
	RunE: serve,
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	sugar := a.logger.Sugar()

	reports := &handlers.Reports{}
	tick := func() {
		report, err := a.pass(ctx)
		if err != nil {
			sugar.Errorw("Scheduled pass failed", "error", err)
			return
		}
		reports.Store(report)
	}

	cronLogger := cron.PrintfLogger(zap.NewStdLog(a.logger))
	scheduler := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))
	entryID, err := scheduler.AddFunc(a.cfg.Schedule, tick)
	if err != nil {
		return fmt.Errorf("invalid SCHEDULE %q: %w", a.cfg.Schedule, err)
	}
	scheduler.Start()
	// Startup pass goes through the scheduler's chain so a tick cannot overlap it.
	go scheduler.Entry(entryID).WrappedJob.Run()

	h := handlers.New(handlers.Config{Reports: reports, Checks: a.checks(), Logger: a.logger})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           h.Router(a.cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		sugar.Infow("Status server starting", "addr", srv.Addr, "schedule", a.cfg.Schedule)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stop()
			<-scheduler.Stop().Done()
			return fmt.Errorf("status server: %w", err)
		}
	}

	sugar.Infow("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Status server shutdown failed", "error", err)
	}
	// Wait for a running pass to observe cancellation and finish.
	<-scheduler.Stop().Done()
	sugar.Infow("Stopped gracefully")
	return nil
}
