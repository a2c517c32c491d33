package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vantagecrm/vantage/pkg/auth"
)

func staticLookup(users map[string]*auth.Principal) UserLookup {
	return UserLookupFunc(func(ctx context.Context, userID string) (*auth.Principal, error) {
		return users[userID], nil
	})
}

func newTestAuthMiddleware(t *testing.T, users map[string]*auth.Principal) (*AuthMiddleware, *auth.Issuer) {
	t.Helper()
	issuer := newTestIssuer(t)
	m := NewAuthMiddleware(issuer, staticLookup(users), newTestClassifier(), nil,
		[]string{"/api/v1/auth/login", "/health"})
	return m, issuer
}

func TestAuthMiddleware_SkipsExemptPrefixes(t *testing.T) {
	m, _ := newTestAuthMiddleware(t, nil)

	var sawAuthHeader string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuthHeader = r.Header.Get("Authorization")
		if GetPrincipal(r) != nil {
			t.Error("exempt request should carry no principal")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if sawAuthHeader != "" {
		t.Errorf("handler saw Authorization header %q on exempt path", sawAuthHeader)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	m, _ := newTestAuthMiddleware(t, nil)

	called := false
	handler := m.Handler(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if called {
		t.Error("handler must not run without credentials")
	}

	body := decodeErrorBody(t, rec)
	if body.ErrorCode != "UNAUTHORIZED" {
		t.Errorf("error_code = %q, want UNAUTHORIZED", body.ErrorCode)
	}
	if body.Message != "Unauthorized" {
		t.Errorf("message = %q, want Unauthorized", body.Message)
	}
	if body.Success {
		t.Error("success must be false on error responses")
	}
}

func TestAuthMiddleware_TokenErrors(t *testing.T) {
	activeUser := &auth.Principal{ID: "user-1", Email: "ada@example.com", Active: true}
	m, issuer := newTestAuthMiddleware(t, map[string]*auth.Principal{"user-1": activeUser})

	// Tokens issued under a different secret verify structurally but
	// fail the signature check.
	otherIssuer, err := auth.NewIssuer(auth.IssuerConfig{
		Secret: []byte("ffffffffffffffffffffffffffffffff"),
		Issuer: "vantage-test",
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	validToken := func(t *testing.T, issuer *auth.Issuer) string {
		token, err := issuer.IssueAccessToken("user-1", "ada@example.com", "member", nil)
		if err != nil {
			t.Fatalf("IssueAccessToken: %v", err)
		}
		return token
	}

	refreshToken, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	tests := []struct {
		name        string
		header      string
		wantMessage string
	}{
		{"malformed header", "Token abc", "Unauthorized"},
		{"not a token", "Bearer not.a.token", "Invalid token"},
		{"wrong key", "Bearer " + validToken(t, otherIssuer), "Invalid token signature"},
		{"wrong purpose", "Bearer " + refreshToken, "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := m.Handler(okHandler(&called))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if called {
				t.Error("handler must not run")
			}
			if body := decodeErrorBody(t, rec); body.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", body.Message, tt.wantMessage)
			}
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	activeUser := &auth.Principal{ID: "user-1", Active: true}
	m, _ := newTestAuthMiddleware(t, map[string]*auth.Principal{"user-1": activeUser})

	// An issuer with a sub-second TTL produces an immediately expired
	// token under the same secret.
	shortIssuer, err := auth.NewIssuer(auth.IssuerConfig{
		Secret:    testSecret,
		Issuer:    "vantage-test",
		AccessTTL: time.Nanosecond,
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	token, err := shortIssuer.IssueAccessToken("user-1", "ada@example.com", "member", nil)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	m.Handler(okHandler(nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if body := decodeErrorBody(t, rec); body.Message != "Token expired" {
		t.Errorf("message = %q, want Token expired", body.Message)
	}
}

func TestAuthMiddleware_InvalidUser(t *testing.T) {
	inactive := &auth.Principal{ID: "user-2", Active: false}
	m, issuer := newTestAuthMiddleware(t, map[string]*auth.Principal{"user-2": inactive})

	for _, userID := range []string{"user-2", "user-unknown"} {
		token, err := issuer.IssueAccessToken(userID, "x@example.com", "member", nil)
		if err != nil {
			t.Fatalf("IssueAccessToken: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		m.Handler(okHandler(nil)).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("user %s: status = %d, want 401", userID, rec.Code)
		}
		if body := decodeErrorBody(t, rec); body.Message != "Invalid user" {
			t.Errorf("user %s: message = %q, want Invalid user", userID, body.Message)
		}
	}
}

func TestAuthMiddleware_AttachesPrincipal(t *testing.T) {
	activeUser := &auth.Principal{
		ID:          "user-1",
		TenantID:    "tenant-1",
		Email:       "ada@example.com",
		Role:        "admin",
		Permissions: []string{"companies:write"},
		Active:      true,
	}
	m, issuer := newTestAuthMiddleware(t, map[string]*auth.Principal{"user-1": activeUser})

	token, err := issuer.IssueAccessToken("user-1", "ada@example.com", "admin", []string{"companies:write"})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := GetPrincipal(r)
		if principal == nil {
			t.Fatal("principal missing from context")
		}
		if principal.ID != "user-1" || principal.TenantID != "tenant-1" {
			t.Errorf("principal = %+v", principal)
		}
		if !principal.HasPermission("companies:write") {
			t.Error("permission lost")
		}

		claims := GetClaims(r)
		if claims == nil || claims.UserID() != "user-1" || claims.Purpose != auth.PurposeAccess {
			t.Errorf("claims = %+v", claims)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
