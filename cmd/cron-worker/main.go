package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/delicado-shop/delicado-api/internal/cron"
	"github.com/delicado-shop/delicado-api/pkg/config"
	"github.com/delicado-shop/delicado-api/pkg/db"
	"github.com/delicado-shop/delicado-api/pkg/instance"
	"github.com/delicado-shop/delicado-api/pkg/logger"
	"github.com/delicado-shop/delicado-api/pkg/metrics"
	"github.com/delicado-shop/delicado-api/pkg/migrate"
	"github.com/delicado-shop/delicado-api/pkg/outbox"
	"github.com/delicado-shop/delicado-api/pkg/redis"
)

const lockName = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: config.ServiceKindCron})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = config.ServiceKindCron
	if err := cfg.RequireFor(cfg.Service.Kind); err != nil {
		logg.Error(context.Background(), "invalid config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: config.ServiceKindCron,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	exitCode := run(ctx, cfg, logg, dbClient, redisClient)

	if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
		logg.Error(ctx, "error closing clients", err)
	}
	os.Exit(exitCode)
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) int {
	retention := cron.RetentionJobParams{Logger: logg, Retention: cfg.Outbox.Retention}

	outboxJob, err := cron.NewOutboxRetentionJob(outbox.NewRepository(dbClient.DB()), retention)
	if err != nil {
		logg.Error(ctx, "failed to create outbox retention job", err)
		return 1
	}
	// DLQ rows keep their own default window; they are inspected by hand.
	dlqJob, err := cron.NewDLQRetentionJob(outbox.NewDLQRepository(dbClient.DB()), cron.RetentionJobParams{Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to create dlq retention job", err)
		return 1
	}

	registry, err := cron.NewRegistry(outboxJob, dlqJob)
	if err != nil {
		logg.Error(ctx, "failed to register cron jobs", err)
		return 1
	}

	lock, err := cron.NewRedisLock(redisClient, lockName, instance.GetID(), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		return 1
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		return 1
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		return 1
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return 0
}
