// Package middleware holds the HTTP middleware for the API server.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	apierrors "github.com/rackguard/rackguard/server/internal/errors"
)

// RateLimiter tracks a token bucket per client key. Idle buckets are swept
// after the idle window so the map stays bounded.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]*clientLimiter
	rps     rate.Limit
	burst   int
	idleFor time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a RateLimiter allowing rps requests per second
// with the given burst per client.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limits:  make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
		idleFor: 3 * time.Minute,
	}
}

// Allow reports whether a request from key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	entry, ok := rl.limits[key]
	if !ok {
		rl.sweepLocked(now)
		entry = &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limits[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	for key, entry := range rl.limits {
		if now.Sub(entry.lastSeen) > rl.idleFor {
			delete(rl.limits, key)
		}
	}
}

// RateLimit rejects requests over the per-client budget with 429.
func RateLimit(limiter *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow(c.RealIP()) {
				apiErr := apierrors.New(apierrors.ErrCodeRateLimitExceeded, "too many requests")
				return c.JSON(http.StatusTooManyRequests, apiErr)
			}
			return next(c)
		}
	}
}
