package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/margalk/catms/internal/platform/auth"
)

// RateLimitConfig bounds how often one caller may hit the API. Exports render
// whole datasets, so the limit is expressed per minute.
type RateLimitConfig struct {
	PerMinute float64
	Burst     int
}

// DefaultRateLimitConfig allows 30 requests a minute with bursts of 10.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{PerMinute: 30, Burst: 10}
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	max        float64
	perSecond  float64
	lastRefill time.Time
}

func newTokenBucket(perMinute float64, burst int, now time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		max:        float64(burst),
		perSecond:  perMinute / 60,
		lastRefill: now,
	}
}

// take consumes a token. When none is left it returns the whole seconds until
// the next one.
func (b *tokenBucket) take(now time.Time) (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = math.Min(b.max, b.tokens+now.Sub(b.lastRefill).Seconds()*b.perSecond)
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if b.perSecond <= 0 {
		return false, 60
	}
	return false, int(math.Ceil((1 - b.tokens) / b.perSecond))
}

type limiterStore struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	cfg     RateLimitConfig
	now     func() time.Time
}

func newLimiterStore(cfg RateLimitConfig, now func() time.Time) *limiterStore {
	return &limiterStore{buckets: make(map[string]*tokenBucket), cfg: cfg, now: now}
}

func (s *limiterStore) bucket(key string) *tokenBucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok {
		b = newTokenBucket(s.cfg.PerMinute, s.cfg.Burst, s.now())
		s.buckets[key] = b
	}
	return b
}

// RateLimit limits each signed-in user, or each client IP for anonymous
// requests, with a token bucket.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	return rateLimit(cfg, time.Now)
}

func rateLimit(cfg RateLimitConfig, now func() time.Time) echo.MiddlewareFunc {
	store := newLimiterStore(cfg, now)
	limit := strconv.FormatFloat(cfg.PerMinute, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
				key = "user:" + uid
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			ok, retry := store.bucket(key).take(now())
			if !ok {
				h.Set("Retry-After", strconv.Itoa(retry))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
