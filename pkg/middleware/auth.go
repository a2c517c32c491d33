package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/vantagecrm/vantage/pkg/apperrors"
	"github.com/vantagecrm/vantage/pkg/auth"
	"github.com/vantagecrm/vantage/pkg/contextkeys"
	"github.com/vantagecrm/vantage/pkg/observability"
)

// defaultLookupTimeout bounds the user resolution call so a slow
// datastore degrades one request instead of server capacity.
const defaultLookupTimeout = 2 * time.Second

// UserLookup resolves a verified token subject to a principal. A nil
// principal with a nil error means no such user exists.
type UserLookup interface {
	LookupUser(ctx context.Context, userID string) (*auth.Principal, error)
}

// UserLookupFunc adapts a function to the UserLookup interface
type UserLookupFunc func(ctx context.Context, userID string) (*auth.Principal, error)

func (f UserLookupFunc) LookupUser(ctx context.Context, userID string) (*auth.Principal, error) {
	return f(ctx, userID)
}

// AuthMiddleware verifies bearer access tokens and attaches the
// resolved principal to the request context.
type AuthMiddleware struct {
	issuer        *auth.Issuer
	users         UserLookup
	classifier    *apperrors.Classifier
	metrics       *observability.Metrics
	skipPrefixes  []string
	lookupTimeout time.Duration
}

// NewAuthMiddleware creates the authentication stage. Requests whose
// path starts with one of skipPrefixes bypass authentication entirely;
// prefixes are checked in declared order and the first match wins.
// Metrics may be nil.
func NewAuthMiddleware(issuer *auth.Issuer, users UserLookup, classifier *apperrors.Classifier, metrics *observability.Metrics, skipPrefixes []string) *AuthMiddleware {
	return &AuthMiddleware{
		issuer:        issuer,
		users:         users,
		classifier:    classifier,
		metrics:       metrics,
		skipPrefixes:  skipPrefixes,
		lookupTimeout: defaultLookupTimeout,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range m.skipPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.reject(w, r, "missing_header", "Unauthorized")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.reject(w, r, "malformed_header", "Unauthorized")
			return
		}

		claims, err := m.issuer.VerifyAndDecode(parts[1], auth.PurposeAccess)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				m.reject(w, r, "token_expired", "Token expired")
			case errors.Is(err, auth.ErrInvalidSignature):
				m.reject(w, r, "invalid_signature", "Invalid token signature")
			default:
				m.reject(w, r, "invalid_token", "Invalid token")
			}
			return
		}

		lookupCtx, cancel := context.WithTimeout(r.Context(), m.lookupTimeout)
		principal, err := m.users.LookupUser(lookupCtx, claims.UserID())
		cancel()
		if err != nil {
			m.classifier.Respond(w, r, apperrors.Internal(err))
			return
		}
		if principal == nil || !principal.Active {
			m.reject(w, r, "invalid_user", "Invalid user")
			return
		}

		ctx := contextkeys.WithPrincipal(r.Context(), principal)
		ctx = contextkeys.WithClaims(ctx, claims)
		ctx = contextkeys.WithUserID(ctx, principal.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, reason, message string) {
	if m.metrics != nil {
		m.metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	}
	m.classifier.Respond(w, r, apperrors.Unauthorized(message))
}

// GetPrincipal extracts the authenticated principal from a request
func GetPrincipal(r *http.Request) *auth.Principal {
	principal, ok := r.Context().Value(contextkeys.PrincipalKey).(*auth.Principal)
	if !ok {
		return nil
	}
	return principal
}

// GetClaims extracts the decoded token claims from a request
func GetClaims(r *http.Request) *auth.Claims {
	claims, ok := r.Context().Value(contextkeys.ClaimsKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}
