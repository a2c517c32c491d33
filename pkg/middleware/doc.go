// Package middleware implements the ordered request interception
// pipeline for the Vantage CRM API.
//
// The stage order is fixed and significant:
//
//	ErrorGuard -> CORS -> RequestID -> RateLimit -> Auth -> handler
//
// ErrorGuard is outermost so nothing downstream can bypass it; CORS
// and RequestID decorate the response headers before dispatching
// downstream, so short-circuited responses (preflight 204, 429, 401)
// still carry them. RateLimit runs before Auth so the limiter gates
// requests before any token verification work happens, which keeps
// credential-stuffing traffic off the auth stage.
//
// Any stage may short-circuit with a fully-formed response; later
// stages and the handler then never execute.
package middleware
