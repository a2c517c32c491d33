package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/vantagecrm/vantage/pkg/apperrors"
	"github.com/vantagecrm/vantage/pkg/contextkeys"
	"github.com/vantagecrm/vantage/pkg/observability"
)

// ErrorGuard contains every failure that escapes the stages and
// handlers below it. It must be the outermost stage: headers applied
// by CORS and RequestID are already on the response when the guard
// writes, and no downstream panic can escape without a response being
// produced.
type ErrorGuard struct {
	classifier *apperrors.Classifier
	logger     *observability.Logger
}

// NewErrorGuard creates the containment stage
func NewErrorGuard(classifier *apperrors.Classifier, logger *observability.Logger) *ErrorGuard {
	return &ErrorGuard{classifier: classifier, logger: logger}
}

// Handler wraps an HTTP handler with panic containment
func (g *ErrorGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := newResponseWriter(w)

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", rec)
			}

			// The guard holds the request as it was before RequestID
			// ran, so the correlation id lives only on the inner
			// context that unwound with the panic. The response header
			// was set before dispatch and still carries it.
			if contextkeys.GetRequestID(r.Context()) == "" {
				if requestID := rw.Header().Get(RequestIDHeader); requestID != "" {
					r = r.WithContext(contextkeys.WithRequestID(r.Context(), requestID))
				}
			}

			if rw.wrote {
				// The response already started; all we can do is log.
				g.logger.FromContext(r.Context()).
					WithError(err).
					WithField("stack", string(debug.Stack())).
					Error("panic after response started")
				return
			}

			g.classifier.Respond(rw, r, apperrors.Internal(err))
		}()

		next.ServeHTTP(rw, r)
	})
}
