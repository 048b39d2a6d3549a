package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/allinsc2/ladder-sync/internal/archive"
	"github.com/allinsc2/ladder-sync/internal/blizzard"
	"github.com/allinsc2/ladder-sync/internal/config"
	"github.com/allinsc2/ladder-sync/internal/discord"
	"github.com/allinsc2/ladder-sync/internal/handlers"
	"github.com/allinsc2/ladder-sync/internal/ladder"
	"github.com/allinsc2/ladder-sync/internal/lease"
	"github.com/allinsc2/ladder-sync/internal/store"
	"github.com/allinsc2/ladder-sync/internal/upstream"
	"github.com/allinsc2/ladder-sync/internal/worker"
)

// app owns the process-wide connections and the sync service.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *pgxpool.Pool
	redis  *redis.Client
	ch     driver.Conn
	leases *lease.Manager
	svc    *ladder.Service
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if modeOverride != "" {
		cfg.ExecutionMode = modeOverride
	}
	logger, err := newLogger(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	sugar := logger.Sugar()

	a := &app{cfg: cfg, logger: logger}

	// Postgres pool sized for the fan-out plus the unregistered phase.
	a.pg, err = store.Connect(ctx, cfg.PostgresURL, cfg.PoolSize+4)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(a.pg, logger); err != nil {
		a.close()
		return nil, err
	}

	var kv lease.KV
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		kv = lease.NewRedisKV(a.redis)
	} else {
		sugar.Infow("REDIS_URL not set, run lease disabled")
	}
	a.leases = lease.NewManager(kv, logger)

	if cfg.ClickHouseURL != "" {
		a.ch, err = archive.Open(ctx, cfg.ClickHouseURL)
		if err != nil {
			a.close()
			return nil, err
		}
	}
	snapshots := archive.New(a.ch, logger)
	if err := snapshots.EnsureSchema(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("ensure archive schema: %w", err)
	}

	deps := ladder.Deps{
		API: blizzard.NewClient(blizzard.Options{
			Timeout: cfg.APITimeout,
			Retry: upstream.RetryPolicy{
				MaxRetries: uint64(cfg.APIMaxRetries),
				Base:       cfg.APIBackoff,
				Max:        upstream.DefaultRetryPolicy.Max,
			},
			Logger: logger,
		}),
		Store:    store.NewPostgres(a.pg, logger),
		Executor: worker.NewExecutor(cfg.ExecutionMode, cfg.PoolSize, logger),
		Archive:  snapshots,
		Logger:   logger,
	}
	if cfg.DiscordBotToken != "" {
		dir, err := discord.NewDirectory(cfg.DiscordBotToken, cfg.GuildID, cfg.FullMemberRoleID, cfg.DiscordRetries, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open discord session: %w", err)
		}
		deps.Directory = dir
	} else {
		sugar.Infow("DISCORD_BOT_TOKEN not set, guild membership sync disabled")
	}

	a.svc = ladder.NewService(ladder.Config{
		ClientID:             cfg.ClientID,
		ClientSecret:         cfg.ClientSecret,
		Regions:              cfg.Regions,
		ClanIDs:              cfg.ClanIDs,
		DistributionAttempts: cfg.DistributionAttempts,
		DistributionBackoff:  cfg.APIBackoff,
		DivisionConcurrency:  cfg.DivisionConcurrency,
	}, deps)

	return a, nil
}

// pass runs one reconciliation under the run lease and announces the report.
func (a *app) pass(ctx context.Context) (*ladder.Report, error) {
	sugar := a.logger.Sugar()

	held, err := a.leases.Acquire(ctx, uuid.NewString(), a.cfg.LeaseTTL)
	if err != nil {
		if errors.Is(err, lease.ErrLeaseHeld) {
			sugar.Warnw("Another pass holds the lease, skipping")
		}
		return nil, err
	}
	defer func() {
		if err := held.Release(context.WithoutCancel(ctx)); err != nil {
			sugar.Warnw("Failed to release lease", "error", err)
		}
	}()

	report, err := a.svc.Run(ctx)
	if err != nil {
		return nil, err
	}
	sugar.Infow("Pass complete",
		"run_id", report.RunID,
		"season", report.Season,
		"members_succeeded", report.Members.Succeeded,
		"members_failed", report.Members.Failed,
		"unregistered_succeeded", report.Unregistered.Succeeded,
		"unregistered_failed", report.Unregistered.Failed,
		"failed_regions", report.FailedRegions,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	if err := a.leases.Announce(ctx, report); err != nil {
		sugar.Warnw("Failed to announce run", "error", err)
	}
	return report, nil
}

// checks lists the readiness probes of every configured dependency.
func (a *app) checks() map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"postgres": a.pg.Ping,
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	if a.ch != nil {
		checks["clickhouse"] = a.ch.Ping
	}
	return checks
}

func (a *app) close() {
	if a.ch != nil {
		a.ch.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.pg != nil {
		a.pg.Close()
	}
	_ = a.logger.Sync()
}
