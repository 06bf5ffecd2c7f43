package server

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// rateLimiter is a fixed-window per-key counter. Good enough for login
// brute-force protection on a single-instance deployment.
type rateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string]*windowCounter
}

type windowCounter struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		hits:   map[string]*windowCounter{},
	}
}

func (r *rateLimiter) Allow(key string) bool {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	counter, ok := r.hits[key]
	if !ok || now.After(counter.resetAt) {
		r.hits[key] = &windowCounter{count: 1, resetAt: now.Add(r.window)}
		r.sweep(now)
		return true
	}
	if counter.count >= r.limit {
		return false
	}
	counter.count++
	return true
}

// sweep drops expired windows. Called under the lock.
func (r *rateLimiter) sweep(now time.Time) {
	if len(r.hits) < 1024 {
		return
	}
	for key, counter := range r.hits {
		if now.After(counter.resetAt) {
			delete(r.hits, key)
		}
	}
}

// LoginRateLimit caps login attempts per client IP.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.loginLimiter.Allow(c.ClientIP()) {
			AbortWithError(c, ErrTooManyLogins)
			return
		}
		c.Next()
	}
}
