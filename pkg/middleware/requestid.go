package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vantagecrm/vantage/pkg/contextkeys"
)

// RequestIDHeader is the inbound and outbound correlation id header
const RequestIDHeader = "X-Request-Id"

// RequestID echoes an inbound correlation id or generates a fresh one,
// stores it on the request context and sets it on the response header.
// The header is written before dispatch so it survives any downstream
// short-circuit or failure.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
