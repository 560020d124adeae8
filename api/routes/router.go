package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/delicado-shop/delicado-api/api/controllers"
	webhookcontrollers "github.com/delicado-shop/delicado-api/api/controllers/webhooks"
	"github.com/delicado-shop/delicado-api/api/middleware"
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
	pkgauth "github.com/delicado-shop/delicado-api/pkg/auth"
	"github.com/delicado-shop/delicado-api/pkg/auth/session"
	"github.com/delicado-shop/delicado-api/pkg/config"
	"github.com/delicado-shop/delicado-api/pkg/logger"
	"github.com/delicado-shop/delicado-api/pkg/redis"
	"github.com/delicado-shop/delicado-api/pkg/stripe"
)

const (
	checkoutIdempotencyScope = "checkout"
	idempotencyTTL           = 24 * time.Hour
)

// redisStore is the slice of the Redis client used by rate limiting and
// request idempotency.
type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps carries everything the HTTP surface is wired to. Nil services are
// tolerated; their routes answer with a 500 instead of panicking.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer

	Auth            auth.Service
	Users           users.Service
	Products        productsvc.Service
	Templates       templates.Service
	Content         content.Service
	Cart            cart.Service
	Personalization personalization.Service
	Orders          orders.Service
	Reports         reports.Service
	Media           media.Service

	Stripe        *stripe.Client
	StripeWebhook *stripewebhook.Service
	StripeGuard   *stripewebhook.EventGuard
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	var store redisStore
	readiness := map[string]controllers.Pinger{}
	if d.Redis != nil {
		store = d.Redis
		readiness["redis"] = d.Redis
	}
	if d.DB != nil {
		readiness["db"] = d.DB
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	checkoutIdempotency := middleware.Idempotency(store, middleware.IdempotencyOptions{
		Scope:    checkoutIdempotencyScope,
		TTL:      idempotencyTTL,
		Required: true,
	}, logg)

	authn := middleware.Auth(cfg.JWT, d.Sessions, logg)
	optionalAuthn := middleware.OptionalAuth(cfg.JWT, d.Sessions, logg)
	admin := func(perm pkgauth.Permission) func(http.Handler) http.Handler {
		return middleware.RequirePermission(perm, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(d.Products, logg))
			r.Get("/categories", controllers.ListProductCategories(d.Products, logg))
			r.Get("/{id}", controllers.GetProduct(d.Products, logg))
			r.Group(func(r chi.Router) {
				r.Use(authn, admin(pkgauth.PermManageCatalog))
				r.Post("/", controllers.CreateProduct(d.Products, logg))
				r.Put("/{id}", controllers.UpdateProduct(d.Products, logg))
				r.Delete("/{id}", controllers.DeleteProduct(d.Products, logg))
			})
		})

		r.Route("/design-templates", func(r chi.Router) {
			r.Get("/", controllers.ListTemplates(d.Templates, logg))
			r.Get("/category/{category}", controllers.ListTemplatesByCategory(d.Templates, logg))
			r.Get("/product-category/{productCategory}", controllers.ListTemplatesForProductCategory(d.Templates, logg))
			r.Get("/{id}", controllers.GetTemplate(d.Templates, logg))
			r.Group(func(r chi.Router) {
				r.Use(authn, admin(pkgauth.PermManageCatalog))
				r.Post("/", controllers.CreateTemplate(d.Templates, logg))
				r.Put("/{id}", controllers.UpdateTemplate(d.Templates, logg))
				r.Delete("/{id}", controllers.DeleteTemplate(d.Templates, logg))
			})
		})

		r.Route("/content-pages", func(r chi.Router) {
			r.Get("/", controllers.ListContentPages(d.Content, logg))
			r.Get("/{slug}", controllers.GetContentPage(d.Content, logg))
			r.Group(func(r chi.Router) {
				r.Use(authn, admin(pkgauth.PermManageContent))
				r.Post("/", controllers.CreateContentPage(d.Content, logg))
				r.Put("/{slug}", controllers.UpdateContentPage(d.Content, logg))
				r.Delete("/{slug}", controllers.DeleteContentPage(d.Content, logg))
			})
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, store, logg)).Post("/login", controllers.Login(d.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, store, logg)).Post("/register", controllers.Register(d.Auth, logg))
			r.Post("/refresh", controllers.Refresh(d.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/logout", controllers.Logout(d.Auth, logg))
				r.Post("/change-password", controllers.ChangePassword(d.Auth, logg))
				r.Get("/profile", controllers.GetProfile(d.Users, logg))
				r.Put("/profile", controllers.UpdateProfile(d.Users, logg))
				r.Post("/addresses", controllers.AddAddress(d.Users, logg))
				r.Delete("/addresses/{index}", controllers.RemoveAddress(d.Users, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(authn, admin(pkgauth.PermManageUsers))
				r.Get("/users", controllers.AdminListUsers(d.Users, logg))
				r.Put("/users/{id}", controllers.AdminUpdateUser(d.Users, logg))
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/webhook", stripeWebhookHandler(d, logg))

			r.Group(func(r chi.Router) {
				r.Use(optionalAuthn)
				r.With(checkoutIdempotency).Post("/create-payment-intent", controllers.CreatePaymentIntent(d.Orders, logg))
				r.With(checkoutIdempotency).Post("/cash-order", controllers.CreateCashOrder(d.Orders, logg))
				r.Post("/finalize-order", controllers.FinalizeOrder(d.Orders, logg))
				r.Get("/orders/{id}", controllers.GetOrder(d.Orders, logg))
			})

			r.With(authn).Get("/user", controllers.ListUserOrders(d.Orders, logg))

			r.Route("/admin/orders", func(r chi.Router) {
				r.Use(authn, admin(pkgauth.PermManageOrders))
				r.Get("/", controllers.AdminListOrders(d.Orders, logg))
				r.Put("/{id}", controllers.AdminUpdateOrderStatus(d.Orders, logg))
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.SessionID(logg))
			r.Get("/", controllers.GetCart(d.Cart, logg))
			r.Delete("/", controllers.ClearCart(d.Cart, logg))
			r.Post("/items", controllers.AddCartItem(d.Cart, logg))
			r.Put("/items/{lineID}", controllers.SetCartItemQuantity(d.Cart, logg))
			r.Delete("/items/{lineID}", controllers.RemoveCartItem(d.Cart, logg))
		})

		r.Route("/personalization/session", func(r chi.Router) {
			r.Use(middleware.SessionID(logg), optionalAuthn)
			r.Get("/", controllers.GetWizardSession(d.Personalization, logg))
			r.Delete("/", controllers.ResetWizardSession(d.Personalization, logg))
			r.Post("/actions", controllers.ApplyWizardAction(d.Personalization, logg))
			r.Post("/complete", controllers.CompleteWizard(d.Personalization, logg))
		})
		r.Get("/personalizations/{id}", controllers.GetPersonalization(d.Personalization, logg))

		r.With(authn, admin(pkgauth.PermViewReports)).Get("/reports", controllers.SalesReport(d.Reports, logg))

		r.With(authn, admin(pkgauth.PermManageCatalog)).Post("/admin/uploads", controllers.AdminUpload(d.Media, cfg.Media.MaxUploadBytes(), logg))
	})

	return r
}

// stripeWebhookHandler unwraps nil pointers so the controller sees untyped
// nils and reports the missing dependency.
func stripeWebhookHandler(d Deps, logg *logger.Logger) http.HandlerFunc {
	var svc webhookcontrollers.StripeWebhookService
	if d.StripeWebhook != nil {
		svc = d.StripeWebhook
	}
	if d.Stripe == nil || d.StripeGuard == nil {
		return webhookcontrollers.StripeWebhook(svc, nil, nil, logg)
	}
	return webhookcontrollers.StripeWebhook(svc, d.Stripe, d.StripeGuard, logg)
}
