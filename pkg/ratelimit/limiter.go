package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vantagecrm/vantage/pkg/observability"
)

// Config defines fixed-window rate limit settings
type Config struct {
	// MaxRequests is the max requests allowed per client per window
	MaxRequests int
	// Window is the length of the counting window
	Window time.Duration
	// KeyPrefix namespaces counter keys in the shared store
	KeyPrefix string
	// OpTimeout bounds every store round-trip so a slow Redis degrades
	// one request, not server capacity
	OpTimeout time.Duration
}

// DefaultConfig returns the default rate limit settings
func DefaultConfig() Config {
	return Config{
		MaxRequests: 100,
		Window:      time.Hour,
		KeyPrefix:   "ratelimit",
		OpTimeout:   2 * time.Second,
	}
}

// Limiter decides per-client admission against a shared Redis counter
type Limiter struct {
	redis        redis.UniversalClient
	cfg          Config
	logger       *observability.Logger
	onStoreError func()
}

// New creates a Redis-backed fixed-window limiter
func New(client redis.UniversalClient, cfg Config, logger *observability.Logger) *Limiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultConfig().MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultConfig().OpTimeout
	}

	return &Limiter{redis: client, cfg: cfg, logger: logger}
}

// SetStoreErrorHook registers a callback invoked once per fail-open
// admission, used to surface store outages as metrics.
func (l *Limiter) SetStoreErrorHook(fn func()) {
	l.onStoreError = fn
}

// MaxRequests returns the configured per-window limit
func (l *Limiter) MaxRequests() int {
	return l.cfg.MaxRequests
}

// Window returns the configured window length
func (l *Limiter) Window() time.Duration {
	return l.cfg.Window
}

// Allow reports whether a request for the client key is admitted.
// The first request in a window creates the counter with a TTL of the
// window length; requests at or over the limit are denied without
// incrementing so the counter never grows unbounded past the limit.
// Any store error fails open.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.OpTimeout)
	defer cancel()

	redisKey := l.counterKey(key)

	count, err := l.redis.Get(ctx, redisKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		l.failOpen(key, err)
		return true
	}
	if err == nil && count >= int64(l.cfg.MaxRequests) {
		return false
	}

	count, err = l.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		l.failOpen(key, err)
		return true
	}

	// Fixed-window semantics: the TTL is set once, on the hit that
	// created the counter.
	if count == 1 {
		if err := l.redis.Expire(ctx, redisKey, l.cfg.Window).Err(); err != nil {
			l.failOpen(key, err)
		}
	}

	return count <= int64(l.cfg.MaxRequests)
}

// Remaining returns the requests left for the client key in the
// current window. A missing counter or an unreachable store reports
// the full quota.
func (l *Limiter) Remaining(ctx context.Context, key string) int {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.OpTimeout)
	defer cancel()

	count, err := l.redis.Get(ctx, l.counterKey(key)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.failOpen(key, err)
		}
		return l.cfg.MaxRequests
	}

	remaining := l.cfg.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// ResetAt returns when the client key's window expires. Without a
// counter TTL (or with the store down) it reports a full window from
// now.
func (l *Limiter) ResetAt(ctx context.Context, key string) time.Time {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.OpTimeout)
	defer cancel()

	ttl, err := l.redis.TTL(ctx, l.counterKey(key)).Result()
	if err != nil {
		l.failOpen(key, err)
		return time.Now().Add(l.cfg.Window)
	}
	if ttl <= 0 {
		return time.Now().Add(l.cfg.Window)
	}
	return time.Now().Add(ttl)
}

// HealthCheck verifies connectivity to the counter store
func (l *Limiter) HealthCheck(ctx context.Context) error {
	return l.redis.Ping(ctx).Err()
}

func (l *Limiter) counterKey(key string) string {
	return fmt.Sprintf("%s:%s", l.cfg.KeyPrefix, key)
}

func (l *Limiter) failOpen(key string, err error) {
	if l.logger != nil {
		l.logger.WithError(err).WithField("client_key", key).
			Warn("rate limit store unreachable, failing open")
	}
	if l.onStoreError != nil {
		l.onStoreError()
	}
}
