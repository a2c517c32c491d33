// Package observability provides structured logging and Prometheus
// metrics for the Vantage CRM backend.
//
// The Logger wraps log/slog with a JSON handler so every line is
// machine-parseable. Loggers are injected explicitly; nothing in this
// package reads process-global state. Request-scoped fields (request
// id, user id) are attached via FromContext using the keys defined in
// pkg/contextkeys.
package observability
