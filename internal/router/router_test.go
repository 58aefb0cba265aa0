package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/account"
	accountentity "github.com/ovaphlow/pitchfork/service-auth-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/oidc"
	sessionentity "github.com/ovaphlow/pitchfork/service-auth-go/internal/session/entity"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/token/tokentest"
)

type stubAccounts struct{}

func (stubAccounts) Create(_ context.Context, in account.CreateInput) (*accountentity.Account, error) {
	return &accountentity.Account{ID: 1, Email: in.Email, Role: accountentity.RoleCustomer}, nil
}

type failingAccounts struct{}

func (failingAccounts) Create(context.Context, account.CreateInput) (*accountentity.Account, error) {
	return nil, apperr.Storage("insert account", errors.New("connection refused"))
}

type stubSessions struct{}

func (stubSessions) Create(_ context.Context, accountID int64, exp time.Time) (*sessionentity.Record, error) {
	return &sessionentity.Record{ID: "s1", AccountID: accountID, ExpiresAt: exp}, nil
}

func newRouter(t *testing.T, logger *zap.SugaredLogger) http.Handler {
	t.Helper()
	iss := tokentest.NewIssuer(t)
	svc := auth.NewService(stubAccounts{}, stubSessions{}, iss, nil)
	return RegisterRoutes(logger, Handlers{
		Auth: auth.NewHandler(svc, auth.CookieConfig{Domain: "localhost"}, nil),
		OIDC: oidc.NewHandler(iss, tokentest.Issuer, "http://localhost:8431"),
	})
}

func TestStaticRoutes(t *testing.T) {
	h := newRouter(t, zap.NewNop().Sugar())
	cases := []struct {
		path string
		body string
	}{
		{"/", "Welcome to auth service."},
		{"/health", "ok"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != tc.body {
			t.Fatalf("GET %s = %d %q", tc.path, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path = %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := newRouter(t, zap.NewNop().Sugar())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS set on plain http")
	}
}

func TestRegisterRoute(t *testing.T) {
	h := newRouter(t, zap.NewNop().Sugar())

	body := `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","password":"analytical-engine"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.TrimSpace(rec.Body.String()) != `{"id":1}` {
		t.Fatalf("body = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/register", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET register = %d", rec.Code)
	}
}

func TestWellKnownRoutes(t *testing.T) {
	h := newRouter(t, zap.NewNop().Sugar())
	for _, path := range []string{"/.well-known/jwks.json", "/.well-known/openid-configuration"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
			t.Fatalf("GET %s = %d", path, rec.Code)
		}
	}
}

func TestLoggingMiddlewareOmitsBody(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newRouter(t, zap.New(core).Sugar())

	body := `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","password":"analytical-engine"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body)))

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("got %d request logs", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != http.MethodPost || fields["path"] != "/auth/register" || fields["status"] != int64(http.StatusCreated) {
		t.Fatalf("unexpected fields %v", fields)
	}
	for k, v := range fields {
		if s, ok := v.(string); ok && strings.Contains(s, "analytical-engine") {
			t.Fatalf("password logged under %q", k)
		}
	}
}

func TestLoggingMiddlewareWarnsOnServerError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc := auth.NewService(failingAccounts{}, stubSessions{}, tokentest.NewIssuer(t), nil)
	h := RegisterRoutes(zap.New(core).Sugar(), Handlers{
		Auth: auth.NewHandler(svc, auth.CookieConfig{Domain: "localhost"}, nil),
	})

	body := `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","password":"analytical-engine"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected one warn entry, got %+v", entries)
	}
	if _, ok := entries[0].ContextMap()["elapsed"]; !ok {
		t.Fatal("elapsed not logged")
	}
}
