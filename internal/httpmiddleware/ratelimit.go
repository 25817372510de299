package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// TokenBucket is an in-memory per-key rate limiter. Buckets refill continuously at
// perMinute tokens per minute up to capacity.
type TokenBucket struct {
	capacity float64
	perSec   float64
	now      func() time.Time
	key      func(*gin.Context) string

	mu        sync.Mutex
	state     map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a limiter keyed by client IP. A capacity <= 0 uses perMinute.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity: float64(capacity),
		perSec:   float64(perMinute) / 60,
		now:      time.Now,
		key:      clientIP,
		state:    make(map[string]*bucket),
	}
}

// WithClock replaces the time source.
func (l *TokenBucket) WithClock(now func() time.Time) *TokenBucket {
	l.now = now
	return l
}

// WithKey replaces the request key function.
func (l *TokenBucket) WithKey(key func(*gin.Context) string) *TokenBucket {
	l.key = key
	return l
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// Middleware rejects requests over the limit with 429.
func (l *TokenBucket) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(l.key(c)) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// Allow takes one token for key.
func (l *TokenBucket) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now)
	b, ok := l.state[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.state[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.perSec
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// refillWindow is how long an empty bucket takes to fill.
func (l *TokenBucket) refillWindow() time.Duration {
	if l.perSec <= 0 {
		return time.Minute
	}
	return time.Duration(l.capacity / l.perSec * float64(time.Second))
}

// sweep drops buckets idle for a full refill window, at most once per window. Such a
// bucket is full, so forgetting it is the same as recreating it on the next request.
func (l *TokenBucket) sweep(now time.Time) {
	window := l.refillWindow()
	if now.Sub(l.lastSweep) < window {
		return
	}
	l.lastSweep = now
	for key, b := range l.state {
		if now.Sub(b.last) >= window {
			delete(l.state, key)
		}
	}
}

// Len returns the number of tracked keys.
func (l *TokenBucket) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.state)
}
