package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single reconciliation pass and exit",
	Long: `Acquires the run lease, samples every configured region, refreshes all
registered members and records unregistered clan participants. When
PUSHGATEWAY_URL is set the process metrics are pushed before exit.`,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	_, runErr := a.pass(ctx)

	if url := a.cfg.PushgatewayURL; url != "" {
		if err := pushMetrics(context.WithoutCancel(ctx), url); err != nil {
			a.logger.Sugar().Warnw("Failed to push metrics", "url", url, "error", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("pass failed: %w", runErr)
	}
	return nil
}

func pushMetrics(ctx context.Context, url string) error {
	return push.New(url, "ladder_sync").
		Gatherer(prometheus.DefaultGatherer).
		PushContext(ctx)
}
