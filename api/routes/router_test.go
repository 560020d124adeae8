package routes

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delicado-shop/delicado-api/internal/cart"
	"github.com/delicado-shop/delicado-api/internal/reports"
	pkgauth "github.com/delicado-shop/delicado-api/pkg/auth"
	"github.com/delicado-shop/delicado-api/pkg/config"
	"github.com/delicado-shop/delicado-api/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubReports struct{}

func (stubReports) Summary(ctx context.Context, days int) (*reports.Report, error) {
	return &reports.Report{Days: days}, nil
}

type stubCart struct{}

func (stubCart) Get(ctx context.Context, sessionID string) (cart.State, error) {
	return cart.Empty(), nil
}

func (stubCart) AddItem(ctx context.Context, sessionID string, input cart.AddItemInput) (cart.State, error) {
	return cart.Empty(), nil
}

func (stubCart) SetQuantity(ctx context.Context, sessionID, lineID string, quantity int) (cart.State, error) {
	return cart.Empty(), nil
}

func (stubCart) RemoveItem(ctx context.Context, sessionID, lineID string) (cart.State, error) {
	return cart.Empty(), nil
}

func (stubCart) Clear(ctx context.Context, sessionID string) (cart.State, error) {
	return cart.Empty(), nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "delicado-test", ExpirationMinutes: 60},
	}
}

func testRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "router_test_total", Help: "test"}))
	return NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       stubPinger{},
		Sessions: stubSessionManager{},
		Gatherer: reg,
		Reports:  stubReports{},
		Cart:     stubCart{},
	}), cfg
}

func bearer(t *testing.T, cfg *config.Config, isAdmin bool) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:  uuid.New(),
		Email:   "ana@example.com",
		IsAdmin: isAdmin,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := testRouter(t)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"db":"up"`)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	rec := do(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "router_test_total")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router, _ := testRouter(t)
	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/api/products"},
		{http.MethodDelete, "/api/design-templates/" + uuid.NewString()},
		{http.MethodPut, "/api/content-pages/about"},
		{http.MethodGet, "/api/auth/users"},
		{http.MethodGet, "/api/payments/admin/orders"},
		{http.MethodGet, "/api/reports"},
		{http.MethodPost, "/api/admin/uploads"},
	} {
		rec := do(router, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestAdminRoutesRequirePermission(t *testing.T) {
	router, cfg := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("Authorization", bearer(t, cfg, false))
	assert.Equal(t, http.StatusForbidden, do(router, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/reports?days=7", nil)
	req.Header.Set("Authorization", bearer(t, cfg, true))
	rec := do(router, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"days":7`)
}

func TestAuthenticatedRoutesRejectAnonymous(t *testing.T) {
	router, _ := testRouter(t)
	assert.Equal(t, http.StatusUnauthorized, do(router, httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(router, httptest.NewRequest(http.MethodGet, "/api/payments/user", nil)).Code)
}

func TestCartMintsSessionHeader(t *testing.T) {
	router, _ := testRouter(t)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := uuid.Parse(rec.Header().Get("X-Session-Id"))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("X-Session-Id", "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, do(router, req).Code)
}

func TestCheckoutRejectsBadToken(t *testing.T) {
	router, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/payments/cash-order", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, do(router, req).Code)
}

func TestStripeWebhookWithoutClient(t *testing.T) {
	router, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	assert.Equal(t, http.StatusInternalServerError, do(router, req).Code)
}

func TestServicesMissingReturn500(t *testing.T) {
	router, _ := testRouter(t)
	assert.Equal(t, http.StatusInternalServerError, do(router, httptest.NewRequest(http.MethodGet, "/api/products", nil)).Code)
}
