package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/vantagecrm/vantage/pkg/auth"
)

func TestLogin_Success(t *testing.T) {
	ts := newTestServer(t)

	pair := ts.login(t)
	if pair.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", pair.TokenType)
	}
	if pair.ExpiresIn != 3600 {
		t.Errorf("expires_in = %d, want 3600", pair.ExpiresIn)
	}
	if pair.RefreshToken == "" {
		t.Error("refresh token missing")
	}

	claims, err := ts.issuer.VerifyAndDecode(pair.AccessToken, auth.PurposeAccess)
	if err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("claims email = %q", claims.Email)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name string
		req  loginRequest
	}{
		{"wrong password", loginRequest{Email: "alice@example.com", Password: "wrong"}},
		{"unknown user", loginRequest{Email: "nobody@example.com", Password: testPassword}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", tc.req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			// Both failures must be indistinguishable.
			if body := decodeError(t, rec); body.Message != "Invalid email or password" {
				t.Errorf("message = %q", body.Message)
			}
		})
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	ts := newTestServer(t)

	inactive := seedUser(t, ts.store, "tenant-a", "gone@example.com")
	inactive.Active = false
	if err := ts.store.CreateUser(context.Background(), inactive); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{
		Email:    "gone@example.com",
		Password: testPassword,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "alice@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decodeError(t, rec); body.ErrorCode != "BAD_REQUEST" {
		t.Errorf("error_code = %q", body.ErrorCode)
	}
}

func TestRefresh_IssuesNewPair(t *testing.T) {
	ts := newTestServer(t)
	pair := ts.login(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", refreshRequest{RefreshToken: pair.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var fresh auth.TokenPair
	decodeData(t, rec, &fresh)
	if fresh.AccessToken == "" || fresh.RefreshToken == "" {
		t.Fatal("refresh response missing tokens")
	}
	if _, err := ts.issuer.VerifyAndDecode(fresh.AccessToken, auth.PurposeAccess); err != nil {
		t.Errorf("new access token does not verify: %v", err)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	ts := newTestServer(t)
	pair := ts.login(t)

	// An access token must not work where a refresh token is expected.
	rec := ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", refreshRequest{RefreshToken: pair.AccessToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if body := decodeError(t, rec); body.Message != "Not a refresh token" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestRefresh_RejectsGarbage(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", refreshRequest{RefreshToken: "not.a.token"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if body := decodeError(t, rec); body.Message != "Invalid refresh token" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestPasswordReset_DoesNotRevealAccounts(t *testing.T) {
	ts := newTestServer(t)

	known := ts.do(t, http.MethodPost, "/api/v1/auth/password-reset", "", passwordResetRequest{Email: "alice@example.com"})
	unknown := ts.do(t, http.MethodPost, "/api/v1/auth/password-reset", "", passwordResetRequest{Email: "nobody@example.com"})

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("statuses = %d/%d, want 200/200", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Error("reset responses differ between known and unknown accounts")
	}
}

func TestPasswordReset_ConfirmChangesPassword(t *testing.T) {
	ts := newTestServer(t)

	user, err := ts.store.GetUserByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	token, err := ts.issuer.IssuePasswordResetToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("IssuePasswordResetToken: %v", err)
	}

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/password-reset/confirm", "", passwordResetConfirmRequest{
		Token:       token,
		NewPassword: "brand-new-password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Old password no longer works, new one does.
	old := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{
		Email: "alice@example.com", Password: testPassword,
	})
	if old.Code != http.StatusUnauthorized {
		t.Errorf("old password login = %d, want 401", old.Code)
	}
	fresh := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{
		Email: "alice@example.com", Password: "brand-new-password",
	})
	if fresh.Code != http.StatusOK {
		t.Errorf("new password login = %d, want 200", fresh.Code)
	}
}

func TestPasswordReset_ConfirmRejectsAccessToken(t *testing.T) {
	ts := newTestServer(t)
	pair := ts.login(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/password-reset/confirm", "", passwordResetConfirmRequest{
		Token:       pair.AccessToken,
		NewPassword: "brand-new-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestPasswordReset_ConfirmRejectsShortPassword(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/password-reset/confirm", "", passwordResetConfirmRequest{
		Token:       "whatever",
		NewPassword: "short",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestMe_ReturnsPrincipal(t *testing.T) {
	ts := newTestServer(t)
	pair := ts.login(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/auth/me", pair.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var principal auth.Principal
	decodeData(t, rec, &principal)
	if principal.Email != "alice@example.com" || principal.TenantID != "tenant-a" {
		t.Errorf("principal = %+v", principal)
	}
}
