package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vantagecrm/vantage/pkg/auth"
	"github.com/vantagecrm/vantage/pkg/config"
	"github.com/vantagecrm/vantage/pkg/httputil"
	"github.com/vantagecrm/vantage/pkg/observability"
	"github.com/vantagecrm/vantage/pkg/ratelimit"
	"github.com/vantagecrm/vantage/pkg/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

const testPassword = "hunter2-but-longer"

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			SigningSecret: testSecret,
			Algorithm:     "HS256",
			Issuer:        "vantage-test",
			AccessTTL:     time.Hour,
			RefreshTTL:    7 * 24 * time.Hour,
			ExemptPrefixes: []string{
				"/health",
				"/metrics",
				"/api/v1/auth/login",
				"/api/v1/auth/refresh",
				"/api/v1/auth/password-reset",
			},
		},
		CORS: config.CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowCredentials: true,
		},
	}
}

func newTestIssuer(t *testing.T, cfg *config.Config) *auth.Issuer {
	t.Helper()
	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		Secret:     []byte(cfg.Auth.SigningSecret),
		Algorithm:  cfg.Auth.Algorithm,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return issuer
}

// seedUser adds an active user with the shared test password
func seedUser(t *testing.T, store storage.UserStore, tenantID, email string) *storage.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := &storage.User{
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: hash,
		Role:         "member",
		Permissions:  []string{"companies:write", "contacts:write"},
		Active:       true,
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

type testServer struct {
	*Server
	store  *storage.MemoryStore
	issuer *auth.Issuer
	cfg    *config.Config
}

// newTestServer builds a server over the in-memory store with one
// seeded user and no rate limiter.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithLimiter(t, nil)
}

func newTestServerWithLimiter(t *testing.T, limiter *ratelimit.Limiter) *testServer {
	t.Helper()
	cfg := testConfig()
	store := storage.NewMemoryStore()
	issuer := newTestIssuer(t, cfg)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	seedUser(t, store, "tenant-a", "alice@example.com")

	return &testServer{
		Server: NewServer(cfg, store, issuer, limiter, logger, nil),
		store:  store,
		issuer: issuer,
		cfg:    cfg,
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.7:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}

// login returns a token pair for the seeded user
func (ts *testServer) login(t *testing.T) *auth.TokenPair {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{
		Email:    "alice@example.com",
		Password: testPassword,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    *auth.TokenPair `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if envelope.Data == nil || envelope.Data.AccessToken == "" {
		t.Fatalf("login response missing tokens: %s", rec.Body.String())
	}
	return envelope.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var body httputil.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	if body.Success {
		t.Error("error envelope has success = true")
	}
	return body
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope %q: %v", rec.Body.String(), err)
	}
	if !envelope.Success {
		t.Fatalf("envelope success = false: %s", rec.Body.String())
	}
	if dst != nil {
		if err := json.Unmarshal(envelope.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}
