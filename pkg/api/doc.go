// Package api wires the HTTP surface of the CRM backend: the router,
// the middleware chain and the request handlers for authentication and
// the tenant-scoped CRM entities.
//
// Every request passes through the same chain before reaching a
// handler:
//
//	ErrorGuard -> CORS -> RequestID -> RateLimit -> Auth -> router
//
// The guard is outermost so it observes every later stage, and rate
// limiting runs before authentication so unauthenticated floods are
// throttled without paying for token verification.
package api
