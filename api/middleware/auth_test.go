package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/delicado-shop/delicado-api/pkg/auth"
	"github.com/delicado-shop/delicado-api/pkg/config"
)

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(context.Context, string) (bool, error) {
	return s.ok, s.err
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "delicado-test", ExpirationMinutes: 60}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, isAdmin bool) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID:  userID,
		Email:   "ana@example.com",
		IsAdmin: isAdmin,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token, userID
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWTConfig(), stubSessionVerifier{ok: true}, nil)(okHandler())
	resp := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWTConfig(), stubSessionVerifier{ok: true}, nil)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	if resp := serve(handler, req); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSetsPrincipal(t *testing.T) {
	cfg := testJWTConfig()
	token, userID := mintTestToken(t, cfg, true)

	var got pkgauth.Principal
	handler := Auth(cfg, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if resp := serve(handler, req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got.UserID != userID || !got.IsAdmin || got.Email != "ana@example.com" {
		t.Fatalf("unexpected principal %+v", got)
	}
	if got.SessionID == "" {
		t.Fatal("expected session id on principal")
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := testJWTConfig()
	token, _ := mintTestToken(t, cfg, false)
	handler := Auth(cfg, stubSessionVerifier{ok: false}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if resp := serve(handler, req); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSessionStoreFailureIsDependencyError(t *testing.T) {
	cfg := testJWTConfig()
	token, _ := mintTestToken(t, cfg, false)
	handler := Auth(cfg, stubSessionVerifier{err: errors.New("redis down")}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if resp := serve(handler, req); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	var hasPrincipal bool
	handler := OptionalAuth(testJWTConfig(), stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasPrincipal = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	if resp := serve(handler, httptest.NewRequest(http.MethodPost, "/", nil)); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if hasPrincipal {
		t.Fatal("anonymous request should carry no principal")
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	if resp := serve(handler, req); resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad token should still be rejected, got %d", resp.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	guard := RequirePermission(pkgauth.PermManageCatalog, nil)(okHandler())

	if resp := serve(guard, httptest.NewRequest(http.MethodPost, "/", nil)); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without principal, got %d", resp.Code)
	}

	customer := httptest.NewRequest(http.MethodPost, "/", nil)
	customer = customer.WithContext(WithPrincipal(customer.Context(), pkgauth.Principal{UserID: uuid.New()}))
	if resp := serve(guard, customer); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPost, "/", nil)
	admin = admin.WithContext(WithPrincipal(admin.Context(), pkgauth.Principal{UserID: uuid.New(), IsAdmin: true}))
	if resp := serve(guard, admin); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", resp.Code)
	}
}

func TestSessionIDMintsAndValidates(t *testing.T) {
	var seen string
	handler := SessionID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	resp := serve(handler, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if resp.Code != http.StatusOK || seen == "" {
		t.Fatalf("expected minted session, got %d %q", resp.Code, seen)
	}
	if resp.Header().Get(sessionHeader) != seen {
		t.Fatalf("session id not echoed")
	}

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(sessionHeader, "../../etc")
	if resp := serve(handler, req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed session id, got %d", resp.Code)
	}
}

func TestRecovererReturns500(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	if resp := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil)); resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestRequestIDEchoesHeader(t *testing.T) {
	handler := RequestID(nil)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	if got := serve(handler, req).Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected echoed id, got %q", got)
	}
	if got := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil)).Header().Get(requestIDHeader); got == "" {
		t.Fatal("expected generated request id")
	}
}
