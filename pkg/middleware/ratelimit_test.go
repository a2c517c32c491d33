package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vantagecrm/vantage/pkg/ratelimit"
)

func newRateLimitHandler(t *testing.T, maxRequests int) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := ratelimit.New(client, ratelimit.Config{
		MaxRequests: maxRequests,
		Window:      time.Minute,
	}, newTestLogger())

	m := NewRateLimitMiddleware(limiter, newTestClassifier(), nil)
	return m.Handler(okHandler(nil)), mr
}

func TestRateLimitMiddleware_DeniesOverLimit(t *testing.T) {
	handler, _ := newRateLimitHandler(t, 2)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}
	if got := first.Header().Get("X-Rate-Limit-Limit"); got != "2" {
		t.Errorf("X-Rate-Limit-Limit = %q, want 2", got)
	}
	if got := first.Header().Get("X-Rate-Limit-Remaining"); got != "1" {
		t.Errorf("X-Rate-Limit-Remaining = %q, want 1", got)
	}
	if got := first.Header().Get("X-Rate-Limit-Window"); got != "60" {
		t.Errorf("X-Rate-Limit-Window = %q, want 60", got)
	}

	do()
	third := do()
	if third.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", third.Code)
	}
	if got := third.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want the window length", got)
	}
	if got := third.Header().Get("X-Rate-Limit-Remaining"); got != "0" {
		t.Errorf("X-Rate-Limit-Remaining = %q, want 0", got)
	}
	if body := decodeErrorBody(t, third); body.ErrorCode != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("error_code = %q, want RATE_LIMIT_EXCEEDED", body.ErrorCode)
	}
}

func TestRateLimitMiddleware_SeparateClientsSeparateBudgets(t *testing.T) {
	handler, _ := newRateLimitHandler(t, 1)

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := do("203.0.113.7:1"); got != http.StatusOK {
		t.Errorf("client A first request = %d, want 200", got)
	}
	if got := do("203.0.113.7:2"); got != http.StatusTooManyRequests {
		t.Errorf("client A second request = %d, want 429", got)
	}
	if got := do("198.51.100.9:1"); got != http.StatusOK {
		t.Errorf("client B first request = %d, want 200", got)
	}
}

func TestRateLimitMiddleware_FailsOpenWhenStoreDown(t *testing.T) {
	handler, mr := newRateLimitHandler(t, 1)
	mr.Close()

	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("request %d with store down = %d, want fail-open 200", i+1, rec.Code)
		}
	}
}
