package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() { gin.SetMode(gin.TestMode) }

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestTokenBucketRefills(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	l := NewTokenBucket(2, 60).WithClock(clk.now)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	clk.t = clk.t.Add(500 * time.Millisecond)
	assert.False(t, l.Allow("a"), "half a token is not enough")
	clk.t = clk.t.Add(500 * time.Millisecond)
	assert.True(t, l.Allow("a"))

	clk.t = clk.t.Add(time.Hour)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "refill is capped at capacity")
}

func TestTokenBucketEvictsIdleKeys(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	// 60 per minute with capacity 2 refills fully in 2s
	l := NewTokenBucket(2, 60).WithClock(clk.now)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.Len())

	clk.t = clk.t.Add(time.Second)
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.Len(), "nothing idle for a full window yet")

	clk.t = clk.t.Add(1500 * time.Millisecond)
	assert.True(t, l.Allow("c"))
	assert.Equal(t, 2, l.Len(), "a is evicted, b was used 1.5s ago")

	clk.t = clk.t.Add(3 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"), "an evicted key starts with a full bucket")
	assert.False(t, l.Allow("a"))
	assert.Equal(t, 1, l.Len())
}

func TestTokenBucketMiddleware(t *testing.T) {
	l := NewTokenBucket(1, 1).WithKey(func(*gin.Context) string { return "k" })
	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core), "/healthz"))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "/missing", entries[0].ContextMap()["path"])
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}
