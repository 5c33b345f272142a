package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/analytics/dashboard", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, zap.NewNop())
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	handler := rl.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestFrom("10.0.0.1:5000"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")

	// another client has its own bucket
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("10.0.0.2:5000"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, zap.NewNop())
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	handler := rl.Middleware(okHandler())

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.1:1"))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("10.0.0.1:1"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	now = now.Add(30 * time.Second)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("10.0.0.1:1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_DisabledPassesThrough(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute, zap.NewNop())
	handler := rl.Middleware(okHandler())
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestFrom("10.0.0.1:1"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute, zap.NewNop())
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	rl.allow("10.0.0.1")
	rl.allow("10.0.0.2")
	require.Len(t, rl.clients, 2)

	now = now.Add(3 * time.Minute)
	rl.allow("10.0.0.3")
	assert.Len(t, rl.clients, 1)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.10:53211"
	assert.Equal(t, "192.168.1.10", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", ClientIP(req))
}
