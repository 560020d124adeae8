package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/delicado-shop/delicado-api/api/routes"
	"github.com/delicado-shop/delicado-api/internal/auth"
	"github.com/delicado-shop/delicado-api/internal/cart"
	"github.com/delicado-shop/delicado-api/internal/content"
	"github.com/delicado-shop/delicado-api/internal/media"
	"github.com/delicado-shop/delicado-api/internal/orders"
	"github.com/delicado-shop/delicado-api/internal/personalization"
	productsvc "github.com/delicado-shop/delicado-api/internal/products"
	"github.com/delicado-shop/delicado-api/internal/reports"
	"github.com/delicado-shop/delicado-api/internal/templates"
	"github.com/delicado-shop/delicado-api/internal/users"
	stripewebhook "github.com/delicado-shop/delicado-api/internal/webhooks/stripe"
	"github.com/delicado-shop/delicado-api/pkg/auth/session"
	"github.com/delicado-shop/delicado-api/pkg/config"
	"github.com/delicado-shop/delicado-api/pkg/db"
	"github.com/delicado-shop/delicado-api/pkg/instance"
	"github.com/delicado-shop/delicado-api/pkg/logger"
	"github.com/delicado-shop/delicado-api/pkg/metrics"
	"github.com/delicado-shop/delicado-api/pkg/migrate"
	"github.com/delicado-shop/delicado-api/pkg/outbox"
	"github.com/delicado-shop/delicado-api/pkg/redis"
	"github.com/delicado-shop/delicado-api/pkg/sessionstate"
	"github.com/delicado-shop/delicado-api/pkg/storage/gcs"
	"github.com/delicado-shop/delicado-api/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if err := cfg.RequireFor(config.ServiceKindAPI); err != nil {
		logg.Error(context.Background(), "invalid config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	productRepo := productsvc.NewRepository(conn)
	templateRepo := templates.NewRepository(conn)
	personalizationRepo := personalization.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	stateStorage := sessionstate.NewRedisStorage(redisClient)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	exitOnErr(ctx, logg, "auth service", err)

	userService, err := users.NewService(userRepo)
	exitOnErr(ctx, logg, "users service", err)

	productService, err := productsvc.NewService(productRepo)
	exitOnErr(ctx, logg, "product service", err)

	templateService, err := templates.NewService(templateRepo)
	exitOnErr(ctx, logg, "template service", err)

	contentService, err := content.NewService(conn)
	exitOnErr(ctx, logg, "content service", err)

	personalizationService, err := personalization.NewService(personalization.ServiceParams{
		Storage:   stateStorage,
		TTL:       cfg.Session.WizardTTL,
		Repo:      personalizationRepo,
		Tx:        dbClient,
		Products:  productRepo,
		Templates: templateRepo,
		Outbox:    outboxService,
		Logger:    logg,
	})
	exitOnErr(ctx, logg, "personalization service", err)

	cartService, err := cart.NewService(cart.ServiceParams{
		Storage:          stateStorage,
		TTL:              cfg.Session.CartTTL,
		Products:         productRepo,
		Personalizations: personalizationRepo,
	})
	exitOnErr(ctx, logg, "cart service", err)

	var (
		stripeClient *stripe.Client
		payments     orders.PaymentGateway
		currency     = cfg.Stripe.Currency
	)
	if cfg.Stripe.Enabled() {
		stripeClient, err = stripe.NewClient(ctx, cfg.Stripe, logg)
		exitOnErr(ctx, logg, "stripe client", err)
		payments = stripeClient
		currency = stripeClient.Currency()
	} else {
		logg.Warn(ctx, "stripe not configured; card checkout disabled")
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:             orders.NewRepository(conn),
		Tx:               dbClient,
		Catalog:          productRepo,
		Personalizations: personalizationRepo,
		Payments:         payments,
		Outbox:           outboxService,
		Metrics:          checkoutMetrics,
		Logger:           logg,
		Currency:         currency,
	})
	exitOnErr(ctx, logg, "order service", err)

	reportService, err := reports.NewService(reports.NewRepository(conn), nil)
	exitOnErr(ctx, logg, "reports service", err)

	var (
		mediaService media.Service
		gcsClient    *gcs.Client
	)
	if cfg.GCS.Enabled() {
		gcsClient, err = gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		exitOnErr(ctx, logg, "gcs client", err)
		mediaService, err = media.NewService(media.ServiceParams{
			Store:    gcsClient,
			MaxBytes: cfg.Media.MaxUploadBytes(),
			Logger:   logg,
		})
		exitOnErr(ctx, logg, "media service", err)
	} else {
		logg.Warn(ctx, "gcs bucket not configured; uploads disabled")
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:  orderService,
		Metrics: checkoutMetrics,
		Logger:  logg,
	})
	exitOnErr(ctx, logg, "stripe webhook service", err)

	webhookGuard, err := stripewebhook.NewEventGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, stripewebhook.DefaultScope)
	exitOnErr(ctx, logg, "stripe webhook guard", err)

	router := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Redis:           redisClient,
		Sessions:        sessionManager,
		Gatherer:        registry,
		Auth:            authService,
		Users:           userService,
		Products:        productService,
		Templates:       templateService,
		Content:         contentService,
		Cart:            cartService,
		Personalization: personalizationService,
		Orders:          orderService,
		Reports:         reportService,
		Media:           mediaService,
		Stripe:          stripeClient,
		StripeWebhook:   webhookService,
		StripeGuard:     webhookGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var closeErr error
	closeErr = multierr.Append(closeErr, server.Shutdown(shutdownCtx))
	if gcsClient != nil {
		closeErr = multierr.Append(closeErr, gcsClient.Close())
	}
	closeErr = multierr.Append(closeErr, redisClient.Close())
	closeErr = multierr.Append(closeErr, dbClient.Close())
	if closeErr != nil {
		logg.Error(shutdownCtx, "error during shutdown", closeErr)
		exitCode = 1
	}
	os.Exit(exitCode)
}

func exitOnErr(ctx context.Context, logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to create "+what, err)
	os.Exit(1)
}
