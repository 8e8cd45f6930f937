package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/ehr/clinicconsole/internal/platform/auth"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 20,
		BurstSize:         40,
	}
}

// limiterStore holds one limiter per caller.
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	config   RateLimitConfig
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.BurstSize)
		s.limiters[key] = l
	}
	return l
}

// callerKey is the signed-in user when known, else the client address.
func callerKey(c echo.Context) string {
	if id := auth.UserIDFromContext(c.Request().Context()); id != "" {
		return "user:" + id
	}
	return "ip:" + c.RealIP()
}

// RateLimit rejects callers that exceed cfg with 429.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := &limiterStore{limiters: make(map[string]*rate.Limiter), config: cfg}
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)

			r := store.get(callerKey(c)).Reserve()
			if !r.OK() || r.Delay() > 0 {
				retry := retryAfter(r)
				r.Cancel()
				h.Set("Retry-After", strconv.Itoa(retry))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

// retryAfter rounds the reservation delay up to whole seconds, at least one.
func retryAfter(r *rate.Reservation) int {
	if !r.OK() {
		return 1
	}
	if secs := int(math.Ceil(r.Delay().Seconds())); secs > 1 {
		return secs
	}
	return 1
}
