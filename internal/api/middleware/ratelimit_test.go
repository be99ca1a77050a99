package middleware

import (
	"context"
	"encoding/json"
	"loan-engine/internal/config"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiterMiddleware(ctx, config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2}, logger)
	handler := rl.Middleware(okHandler())

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/loans", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("allows the burst then blocks", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, send("127.0.0.1:12345").Code)
		assert.Equal(t, http.StatusOK, send("127.0.0.1:12345").Code)

		blocked := send("127.0.0.1:12345")
		require.Equal(t, http.StatusTooManyRequests, blocked.Code)
		assert.Equal(t, "1", blocked.Header().Get("Retry-After"))

		var response map[string]map[string]string
		require.NoError(t, json.NewDecoder(blocked.Body).Decode(&response))
		assert.Equal(t, "Rate limit exceeded", response["error"]["message"])
	})

	t.Run("other clients have their own bucket", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, send("10.1.1.1:4000").Code)
	})
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiterMiddleware(context.Background(), config.RateLimitConfig{Enabled: false, RPS: 0.001, Burst: 1}, logger)
	handler := rl.Middleware(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiterMiddleware(context.Background(), config.RateLimitConfig{RPS: 1, Burst: 1}, logger)
	now := time.Now()

	rl.getLimiter("10.0.0.1", now.Add(-2*limiterIdleTTL))
	rl.getLimiter("10.0.0.2", now)

	assert.Equal(t, 1, rl.sweep(now))
	_, stale := rl.visitors["10.0.0.1"]
	_, fresh := rl.visitors["10.0.0.2"]
	assert.False(t, stale)
	assert.True(t, fresh)
}

func TestExtractIP(t *testing.T) {
	rl := NewRateLimiterMiddleware(context.Background(), config.RateLimitConfig{}, logger)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1")
	assert.Equal(t, "192.168.1.1", rl.extractIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	assert.Equal(t, "10.0.0.1", rl.extractIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	assert.Equal(t, "127.0.0.1", rl.extractIP(req))
}
