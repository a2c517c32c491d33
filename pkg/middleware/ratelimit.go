package middleware

import (
	"net/http"
	"strconv"

	"github.com/vantagecrm/vantage/pkg/apperrors"
	"github.com/vantagecrm/vantage/pkg/contextkeys"
	"github.com/vantagecrm/vantage/pkg/observability"
	"github.com/vantagecrm/vantage/pkg/ratelimit"
)

// RateLimitMiddleware gates requests through the distributed limiter.
// It runs before Auth, so the token verification work itself sits
// behind the limiter and the client key is normally IP-derived.
type RateLimitMiddleware struct {
	limiter    *ratelimit.Limiter
	classifier *apperrors.Classifier
	metrics    *observability.Metrics
}

// NewRateLimitMiddleware creates the rate limiting stage. Metrics may
// be nil.
func NewRateLimitMiddleware(limiter *ratelimit.Limiter, classifier *apperrors.Classifier, metrics *observability.Metrics) *RateLimitMiddleware {
	m := &RateLimitMiddleware{limiter: limiter, classifier: classifier, metrics: metrics}
	if metrics != nil {
		limiter.SetStoreErrorHook(func() { metrics.RateLimitStoreErrorsTotal.Inc() })
	}
	return m
}

// Handler wraps an HTTP handler with admission control
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	windowSeconds := strconv.Itoa(int(m.limiter.Window().Seconds()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := ratelimit.ClientKey(contextkeys.GetUserID(ctx), ratelimit.ClientIP(r))

		allowed := m.limiter.Allow(ctx, key)

		w.Header().Set("X-Rate-Limit-Limit", strconv.Itoa(m.limiter.MaxRequests()))
		w.Header().Set("X-Rate-Limit-Remaining", strconv.Itoa(m.limiter.Remaining(ctx, key)))
		w.Header().Set("X-Rate-Limit-Reset", strconv.FormatInt(m.limiter.ResetAt(ctx, key).Unix(), 10))
		w.Header().Set("X-Rate-Limit-Window", windowSeconds)

		if !allowed {
			if m.metrics != nil {
				m.metrics.RateLimitDeniedTotal.Inc()
			}
			w.Header().Set("Retry-After", windowSeconds)
			m.classifier.Respond(w, r, apperrors.TooManyRequests("Rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
