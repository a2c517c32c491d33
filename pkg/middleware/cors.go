package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig defines cross-origin resource sharing settings
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig returns permissive defaults suitable for a
// browser dashboard served from another origin.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-Id"},
		MaxAge:         3600,
	}
}

// CORS attaches cross-origin headers and short-circuits preflight
// requests with a 204. Headers are applied before dispatching
// downstream so short-circuited responses still carry them.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			if allowOrigin := resolveOrigin(cfg, origin); allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resolveOrigin returns the Access-Control-Allow-Origin value for a
// request origin, or empty when the origin is not allowed. A wildcard
// with credentials echoes the origin, since browsers reject the
// literal "*" in that combination.
func resolveOrigin(cfg CORSConfig, origin string) string {
	for _, allowed := range cfg.AllowedOrigins {
		if allowed == "*" {
			if cfg.AllowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
		if allowed == origin && origin != "" {
			return origin
		}
	}
	return ""
}
