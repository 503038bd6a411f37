package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	apperrors "github.com/hrygo/chronolog/server/internal/errors"
)

const (
	// DefaultRate is the sustained number of requests allowed per key each second.
	DefaultRate = 2
	// DefaultBurst is the number of requests a key may make at once.
	DefaultBurst = 10
)

// RateLimiter provides per-key rate limiting.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*entry
	every  rate.Limit
	burst  int
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter allowing perSecond requests with the
// given burst for every key. Non-positive values select the defaults.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimiter{
		limits: make(map[string]*entry),
		every:  rate.Limit(perSecond),
		burst:  burst,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if e, ok := rl.limits[key]; ok {
		e.lastSeen = time.Now()
		return e.limiter
	}

	limiter := rate.NewLimiter(rl.every, rl.burst)
	rl.limits[key] = &entry{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Wait waits for a request to be allowed.
// Returns error if the context is cancelled or rate limit exceeded.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.getLimiter(key).Wait(ctx)
}

// Prune forgets keys idle for longer than maxIdle and returns how many were dropped.
func (rl *RateLimiter) Prune(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	dropped := 0
	for key, e := range rl.limits {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limits, key)
			dropped++
		}
	}
	return dropped
}

// KeyFunc picks the rate limiting key for a request.
type KeyFunc func(c echo.Context) string

// SubjectOrIP keys requests by the authenticated subject, falling back to
// the client IP for anonymous callers.
func SubjectOrIP(c echo.Context) string {
	if subject, ok := c.Get(SubjectKey).(string); ok && subject != "" {
		return "sub:" + subject
	}
	return "ip:" + c.RealIP()
}

// RateLimit rejects requests whose key has exhausted its budget.
func RateLimit(rl *RateLimiter, key KeyFunc) echo.MiddlewareFunc {
	if key == nil {
		key = SubjectOrIP
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(key(c)) {
				return apperrors.RateLimitExceeded("too many requests, slow down")
			}
			return next(c)
		}
	}
}
