package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/delicado-shop/delicado-api/pkg/config"
	"github.com/delicado-shop/delicado-api/pkg/db"
	"github.com/delicado-shop/delicado-api/pkg/instance"
	"github.com/delicado-shop/delicado-api/pkg/logger"
	"github.com/delicado-shop/delicado-api/pkg/outbox"
	"github.com/delicado-shop/delicado-api/pkg/outbox/registry"
	"github.com/delicado-shop/delicado-api/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: config.ServiceKindOutboxPublisher})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = config.ServiceKindOutboxPublisher
	if err := cfg.RequireFor(cfg.Service.Kind); err != nil {
		logg.Error(context.Background(), "invalid config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: config.ServiceKindOutboxPublisher,
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		_ = dbClient.Close()
		os.Exit(1)
	}

	exitCode := run(ctx, cfg, logg, dbClient, pubsubClient)

	if err := multierr.Combine(pubsubClient.Close(), dbClient.Close()); err != nil {
		logg.Error(ctx, "error closing clients", err)
	}
	os.Exit(exitCode)
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, pubsubClient *pubsub.Client) int {
	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		logg.Error(ctx, "failed to build event registry", err)
		return 1
	}

	service, err := NewService(ServiceParams{
		Config:        cfg.Outbox,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(ctx, "failed to create outbox publisher", err)
		return 1
	}

	logg.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		return 1
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
	return 0
}
