package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/laman/pkg/auth"
)

func withUser(r *http.Request, userID int64) *http.Request {
	return r.WithContext(auth.WithPrincipal(r.Context(), &auth.Principal{UserID: userID}))
}

func TestRateLimiter_Allow(t *testing.T) {
	config := &RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Second,
		BurstSize:         2,
	}
	limiter := NewRateLimiter(config)

	allowedCount := 0
	for i := 0; i < config.RequestsPerWindow+config.BurstSize+5; i++ {
		if limiter.Allow("user:1") {
			allowedCount++
		}
	}

	expected := config.RequestsPerWindow + config.BurstSize
	if allowedCount != expected {
		t.Errorf("Allowed %d requests, want %d", allowedCount, expected)
	}
	if limiter.Remaining("user:1") != 0 {
		t.Errorf("Remaining = %d, want 0", limiter.Remaining("user:1"))
	}
	if !limiter.Allow("user:2") {
		t.Error("keys should be limited independently")
	}

	// 10 per second refills one token every 100ms
	time.Sleep(150 * time.Millisecond)
	if !limiter.Allow("user:1") {
		t.Error("Should allow request after refill")
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 5, WindowDuration: 10 * time.Millisecond})
	limiter.Allow("user:1")

	time.Sleep(30 * time.Millisecond)
	limiter.Cleanup()

	limiter.mu.Lock()
	count := len(limiter.buckets)
	limiter.mu.Unlock()
	if count != 0 {
		t.Errorf("expected idle buckets to be removed, %d left", count)
	}
}

func TestRateLimiter_Concurrency(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 50, WindowDuration: time.Hour})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("Allowed %d concurrent requests, want 50", allowed)
	}
}

func TestGenerationRateLimitConfig(t *testing.T) {
	config := GenerationRateLimitConfig(30)
	assert.Equal(t, 30, config.RequestsPerWindow)
	assert.Equal(t, time.Minute, config.WindowDuration)
	assert.Equal(t, 3, config.BurstSize)
}

func newRedisLimiter(t *testing.T, config *RateLimitConfig) (*DistributedRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewDistributedRateLimiter(client, config, "ratelimit:generate"), mr
}

func TestDistributedRateLimiter_Allow(t *testing.T) {
	config := &RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}
	limiter, mr := newRedisLimiter(t, config)
	ctx := context.Background()

	first, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)
	assert.Equal(t, time.Minute, first.ResetIn)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:generate:user:1"))

	mr.FastForward(20 * time.Second)
	second, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.Equal(t, 40*time.Second, mr.TTL("ratelimit:generate:user:1"), "window must not be extended")

	third, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.Equal(t, 0, third.Remaining)

	remaining, err := limiter.Remaining(ctx, "user:2")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	mr.FastForward(time.Minute)
	again, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, again.Allowed)

	require.NoError(t, limiter.Reset(ctx, "user:1"))
	assert.False(t, mr.Exists("ratelimit:generate:user:1"))
}

func TestRateLimitMiddleware_PerUser(t *testing.T) {
	config := &RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}
	limiter, _ := newRedisLimiter(t, config)
	m := NewRateLimitMiddleware(config, limiter, nil)

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, withUser(httptest.NewRequest("POST", "/generate", nil), 1))
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, withUser(httptest.NewRequest("POST", "/generate", nil), 1))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.True(t, strings.Contains(w.Body.String(), "rate limit exceeded"))

	// another user has their own window
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, withUser(httptest.NewRequest("POST", "/generate", nil), 2))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRateLimitMiddleware_FallsBackToLocalLimiter(t *testing.T) {
	config := &RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}
	limiter, mr := newRedisLimiter(t, config)
	mr.Close()

	m := NewRateLimitMiddleware(config, limiter, nil)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, withUser(httptest.NewRequest("POST", "/generate", nil), 1))
	assert.Equal(t, http.StatusOK, w.Code, "redis failure must not reject requests")

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, withUser(httptest.NewRequest("POST", "/generate", nil), 1))
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "local limiter still applies")
}

func TestRateLimitMiddleware_AnonymousByIP(t *testing.T) {
	config := &RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}
	m := NewRateLimitMiddleware(config, nil, nil)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		r := httptest.NewRequest("GET", "/plans", nil)
		r.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.1"))
	assert.Equal(t, http.StatusOK, send("203.0.113.2"))
}
