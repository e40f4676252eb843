package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/platinummonkey/laman/pkg/auth"
	"github.com/platinummonkey/laman/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
}

// DefaultRateLimitConfig returns default rate limit settings
func DefaultRateLimitConfig() *RateLimitConfig {
	return GenerationRateLimitConfig(30)
}

// GenerationRateLimitConfig limits page generation to perMinute requests
func GenerationRateLimitConfig(perMinute int) *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: perMinute,
		WindowDuration:    time.Minute,
		BurstSize:         perMinute / 10,
	}
}

// RateLimiter is an in-process limiter holding one token bucket per key
type RateLimiter struct {
	config  *RateLimitConfig
	buckets map[string]*bucket
	mu      sync.Mutex
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
	}
}

func (rl *RateLimiter) bucket(key string) *bucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[key]
	if !exists {
		every := rl.config.WindowDuration / time.Duration(max(rl.config.RequestsPerWindow, 1))
		b = &bucket{
			limiter: rate.NewLimiter(rate.Every(every), rl.config.RequestsPerWindow+rl.config.BurstSize),
		}
		rl.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.bucket(key).limiter.Allow()
}

// Remaining returns the number of whole tokens left for a key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	b, exists := rl.buckets[key]
	rl.mu.Unlock()

	if !exists {
		return rl.config.RequestsPerWindow + rl.config.BurstSize
	}
	return max(int(b.limiter.Tokens()), 0)
}

// Cleanup removes buckets idle for more than two windows
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.config.WindowDuration*2 {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanup starts a background goroutine to cleanup old buckets
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RateLimitMiddleware limits requests per authenticated user, or per client
// IP for anonymous requests. When a distributed limiter is configured it is
// authoritative; if Redis fails the request is checked against the local
// limiter instead of being rejected.
type RateLimitMiddleware struct {
	config      *RateLimitConfig
	distributed *DistributedRateLimiter
	local       *RateLimiter
	audit       *auth.AuditLogger
	logger      *observability.Logger
}

// NewRateLimitMiddleware creates a rate limit middleware. distributed may be nil.
func NewRateLimitMiddleware(config *RateLimitConfig, distributed *DistributedRateLimiter, logger *observability.Logger) *RateLimitMiddleware {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &RateLimitMiddleware{
		config:      config,
		distributed: distributed,
		local:       NewRateLimiter(config),
		logger:      logger,
	}
}

// WithAudit records rejected requests
func (m *RateLimitMiddleware) WithAudit(audit *auth.AuditLogger) *RateLimitMiddleware {
	m.audit = audit
	return m
}

// Local returns the in-process limiter so callers can schedule its cleanup
func (m *RateLimitMiddleware) Local() *RateLimiter {
	return m.local
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rateLimitKey(r)

		allowed, remaining, retryAfter := m.check(r.Context(), key)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.config.RequestsPerWindow))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(retryAfter).Unix(), 10))

		if !allowed {
			if m.audit != nil {
				m.audit.LogFromRequest(r, auth.ActionRateLimitExceeded, r.URL.Path, auth.StatusDenied, nil)
			}
			rateLimitExceeded(w, retryAfter)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) check(ctx context.Context, key string) (allowed bool, remaining int, retryAfter time.Duration) {
	if m.distributed != nil {
		result, err := m.distributed.Allow(ctx, key)
		if err == nil {
			return result.Allowed, result.Remaining, result.ResetIn
		}
		m.logger.WithError(err).WithField("key", key).Warn("distributed rate limiter unavailable, using local limiter")
	}

	allowed = m.local.Allow(key)
	return allowed, m.local.Remaining(key), m.config.WindowDuration
}

func rateLimitExceeded(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := fmt.Sprintf("%.0f", retryAfter.Seconds())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", seconds)
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"rate limit exceeded","retry_after":` + seconds + `}`))
}

func rateLimitKey(r *http.Request) string {
	if principal := GetPrincipal(r); principal != nil {
		return fmt.Sprintf("user:%d", principal.UserID)
	}
	return "ip:" + auth.ClientIP(r)
}
