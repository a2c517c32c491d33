package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/vantagecrm/vantage/pkg/auth"
	"github.com/vantagecrm/vantage/pkg/middleware"
	"github.com/vantagecrm/vantage/pkg/observability"
	"github.com/vantagecrm/vantage/pkg/ratelimit"
	"github.com/vantagecrm/vantage/pkg/storage"
)

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var status map[string]interface{}
	decodeData(t, rec, &status)
	if status["status"] != "ok" {
		t.Errorf("status = %v", status["status"])
	}
}

func TestServer_ProtectedRouteRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/companies", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	body := decodeError(t, rec)
	if body.ErrorCode != "UNAUTHORIZED" {
		t.Errorf("error_code = %q", body.ErrorCode)
	}
	if body.RequestID == "" {
		t.Error("error envelope missing request_id")
	}
}

func TestServer_AccessTokenGrantsEntry(t *testing.T) {
	ts := newTestServer(t)
	pair := ts.login(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/companies", pair.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestServer_ExpiredTokenRejected(t *testing.T) {
	ts := newTestServer(t)

	shortLived, err := auth.NewIssuer(auth.IssuerConfig{
		Secret:     []byte(testSecret),
		Algorithm:  "HS256",
		Issuer:     ts.cfg.Auth.Issuer,
		AccessTTL:  time.Nanosecond,
		RefreshTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	user, err := ts.store.GetUserByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	token, err := shortLived.IssueAccessToken(user.ID, user.Email, user.Role, user.Permissions)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	rec := ts.do(t, http.MethodGet, "/api/v1/companies", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if body := decodeError(t, rec); body.Message != "Token expired" {
		t.Errorf("message = %q, want Token expired", body.Message)
	}
}

func TestServer_RefreshTokenCannotAccessAPI(t *testing.T) {
	ts := newTestServer(t)
	pair := ts.login(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/companies", pair.RefreshToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestServer_NotFoundEnvelope(t *testing.T) {
	ts := newTestServer(t)
	pair := ts.login(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/no-such-resource", pair.AccessToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := decodeError(t, rec); body.ErrorCode != "NOT_FOUND" {
		t.Errorf("error_code = %q", body.ErrorCode)
	}
}

func TestServer_RequestIDEchoed(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "corr-e2e-1")
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	if got := rec.Header().Get(middleware.RequestIDHeader); got != "corr-e2e-1" {
		t.Errorf("%s = %q, want corr-e2e-1", middleware.RequestIDHeader, got)
	}
}

func TestServer_CORSPreflightShortCircuits(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/companies", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	// Preflight must succeed without credentials.
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("missing Access-Control-Allow-Origin")
	}
}

func TestServer_RateLimitAppliesBeforeAuth(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	limiter := ratelimit.New(client, ratelimit.Config{
		MaxRequests: 2,
		Window:      time.Minute,
	}, logger)
	ts := newTestServerWithLimiter(t, limiter)

	// No credentials at all: the limiter must still throttle.
	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodGet, "/api/v1/companies", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("request %d status = %d, want 401", i+1, rec.Code)
		}
	}
	rec := ts.do(t, http.MethodGet, "/api/v1/companies", "", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if body := decodeError(t, rec); body.ErrorCode != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("error_code = %q", body.ErrorCode)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
}

func TestServer_PanicCountedWithFinalStatus(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemoryStore()
	issuer := newTestIssuer(t, cfg)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	seedUser(t, store, "tenant-a", "alice@example.com")

	ts := &testServer{
		Server: NewServer(cfg, store, issuer, nil, logger, metrics),
		store:  store,
		issuer: issuer,
		cfg:    cfg,
	}
	ts.router.HandleFunc("/api/v1/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}).Methods("GET")

	pair := ts.login(t)
	rec := ts.do(t, http.MethodGet, "/api/v1/boom", pair.AccessToken, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	// Instrument observes the guard's response, so the contained panic
	// is counted with its final status.
	counted := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/boom", "500"))
	if counted != 1 {
		t.Errorf("counted = %v requests with status 500, want 1", counted)
	}
}

func TestServer_PanicContained(t *testing.T) {
	ts := newTestServer(t)

	// Inject a panicking route behind the normal chain.
	ts.router.HandleFunc("/api/v1/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}).Methods("GET")

	pair := ts.login(t)
	rec := ts.do(t, http.MethodGet, "/api/v1/boom", pair.AccessToken, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Message != "Internal server error" {
		t.Errorf("message = %q, must not leak panic detail", body.Message)
	}
	if body.Debug != nil {
		t.Error("debug detail present in production mode")
	}
}
