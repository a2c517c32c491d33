// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains the authenticated principal (*auth.Principal)
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: all protected API endpoints
	PrincipalKey Key = "principal"

	// ClaimsKey contains the decoded token claims (*auth.Claims)
	// Set by: middleware.AuthMiddleware after token verification
	// Used by: handlers that need raw claim fields (role, permissions)
	ClaimsKey Key = "claims"

	// RequestIDKey contains the correlation id string for the request
	// Set by: middleware.RequestID
	// Used by: logger, error classifier, X-Request-Id response header
	RequestIDKey Key = "request_id"

	// UserIDKey contains the authenticated user id string
	// Set by: middleware.AuthMiddleware
	// Used by: logger, rate limit client key resolution
	UserIDKey Key = "user_id"
)

// WithPrincipal adds the authenticated principal to the context
func WithPrincipal(ctx context.Context, principal interface{}) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// WithClaims adds decoded token claims to the context
func WithClaims(ctx context.Context, claims interface{}) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// WithRequestID adds the correlation id to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds the user id to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetRequestID retrieves the correlation id from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves the user id from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
