package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/delicado-shop/delicado-api/internal/analytics/router"
	"github.com/delicado-shop/delicado-api/internal/analytics/worker"
	"github.com/delicado-shop/delicado-api/internal/analytics/writer"
	"github.com/delicado-shop/delicado-api/pkg/bigquery"
	"github.com/delicado-shop/delicado-api/pkg/config"
	"github.com/delicado-shop/delicado-api/pkg/instance"
	"github.com/delicado-shop/delicado-api/pkg/logger"
	"github.com/delicado-shop/delicado-api/pkg/outbox/idempotency"
	"github.com/delicado-shop/delicado-api/pkg/pubsub"
	"github.com/delicado-shop/delicado-api/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: config.ServiceKindAnalytics})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = config.ServiceKindAnalytics
	requireResource(ctx, logg, "config", cfg.RequireFor(cfg.Service.Kind))

	logg = logger.New(logger.Options{
		ServiceName: config.ServiceKindAnalytics,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		_ = redisClient.Close()
		requireResource(ctx, logg, "pubsub", err)
	}

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		_ = multierr.Combine(pubsubClient.Close(), redisClient.Close())
		requireResource(ctx, logg, "bigquery client", err)
	}

	exitCode := run(ctx, cfg, logg, redisClient, pubsubClient, bqClient)

	if err := multierr.Combine(bqClient.Close(), pubsubClient.Close(), redisClient.Close()); err != nil {
		logg.Error(ctx, "error closing clients", err)
	}
	os.Exit(exitCode)
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, redisClient *redis.Client, pubsubClient *pubsub.Client, bqClient *bigquery.Client) int {
	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		logg.Error(ctx, "resource not working: analytics subscription", errors.New("subscription not configured"))
		return 1
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		logg.Error(ctx, "resource not working: idempotency manager", err)
		return 1
	}

	orderWriter, err := writer.New(bqClient, writer.Config{OrderEventsTable: cfg.BigQuery.OrderEventsTable})
	if err != nil {
		logg.Error(ctx, "resource not working: analytics writer", err)
		return 1
	}

	routingHandler, err := router.NewRouter(orderWriter, logg, nil)
	if err != nil {
		logg.Error(ctx, "resource not working: analytics router", err)
		return 1
	}

	service, err := worker.NewService(subscription, routingHandler, manager, logg)
	if err != nil {
		logg.Error(ctx, "resource not working: analytics worker", err)
		return 1
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "analytics worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "analytics worker failed", err)
		return 1
	}
	logg.Info(runCtx, "analytics worker shutting down gracefully")
	return 0
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
