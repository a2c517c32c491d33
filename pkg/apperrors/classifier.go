package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/vantagecrm/vantage/pkg/contextkeys"
	"github.com/vantagecrm/vantage/pkg/httputil"
	"github.com/vantagecrm/vantage/pkg/observability"
)

// genericMessages are the fixed per-status phrases returned in
// production mode. Internal error text never reaches clients.
var genericMessages = map[int]string{
	http.StatusBadRequest:            "Bad request",
	http.StatusUnauthorized:          "Unauthorized",
	http.StatusForbidden:             "Forbidden",
	http.StatusNotFound:              "Not found",
	http.StatusMethodNotAllowed:      "Method not allowed",
	http.StatusConflict:              "Conflict",
	http.StatusUnprocessableEntity:   "Unprocessable entity",
	http.StatusTooManyRequests:       "Too many requests",
	http.StatusInternalServerError:   "Internal server error",
	http.StatusServiceUnavailable:    "Service unavailable",
	http.StatusGatewayTimeout:        "Gateway timeout",
	http.StatusRequestEntityTooLarge: "Request entity too large",
}

// Classifier maps arbitrary failures to HTTP responses. Debug controls
// whether internal error detail is included in response bodies; it
// never affects logging.
type Classifier struct {
	logger *observability.Logger
	debug  bool
}

// NewClassifier creates a classifier writing through the given logger
func NewClassifier(logger *observability.Logger, debug bool) *Classifier {
	return &Classifier{logger: logger, debug: debug}
}

// StatusFor returns the HTTP status for an error. Errors that declare
// their own status win; everything unrecognized is a 500.
func (c *Classifier) StatusFor(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// CodeFor returns the stable upper-snake-case error code for an error
func (c *Classifier) CodeFor(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return "INTERNAL_SERVER_ERROR"
}

// MessageFor returns the user-visible message for an error. AppError
// messages are user-safe by construction and always shown; for any
// other error the fixed per-status phrase is used unless debug mode
// exposes the raw message.
func (c *Classifier) MessageFor(err error, debugMode bool) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if debugMode {
		return err.Error()
	}
	if msg, ok := genericMessages[c.StatusFor(err)]; ok {
		return msg
	}
	return genericMessages[http.StatusInternalServerError]
}

// Respond logs the error once and writes the standard error envelope.
// This is the single point of translation from errors to responses.
func (c *Classifier) Respond(w http.ResponseWriter, r *http.Request, err error) {
	status := c.StatusFor(err)
	code := c.CodeFor(err)
	requestID := contextkeys.GetRequestID(r.Context())

	logger := c.logger.FromContext(r.Context()).WithFields(map[string]interface{}{
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     status,
		"error_code": code,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		logger.WithField("stack", string(debug.Stack())).Error("request failed")
	} else {
		logger.Warn("request rejected")
	}

	var debugInfo *httputil.DebugInfo
	if c.debug {
		debugInfo = &httputil.DebugInfo{
			Error: err.Error(),
			Type:  fmt.Sprintf("%T", cause(err)),
		}
		if status >= http.StatusInternalServerError {
			debugInfo.Trace = string(debug.Stack())
		}
	}

	httputil.WriteErrorEnvelope(w, status, c.MessageFor(err, c.debug), code, requestID, debugInfo)
}

// cause unwraps to the innermost error for debug type reporting
func cause(err error) error {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}
