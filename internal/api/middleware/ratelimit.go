package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Togather-Foundation/nko-directory/internal/api/problem"
	"github.com/Togather-Foundation/nko-directory/internal/config"
	"golang.org/x/time/rate"
)

type RateLimitTier string

const (
	TierPublic RateLimitTier = "public"
	// TierAuth covers register and login, where guessing is the threat.
	TierAuth RateLimitTier = "auth"
)

const (
	limiterTTL      = 15 * time.Minute
	cleanupInterval = 5 * time.Minute
)

type rateLimitKey string

const rateLimitTierKey rateLimitKey = "rateLimitTier"

func WithRateLimitTier(ctx context.Context, tier RateLimitTier) context.Context {
	return context.WithValue(ctx, rateLimitTierKey, tier)
}

// WithRateLimitTierHandler marks requests to the wrapped handler with tier.
// It must run before RateLimit sees the request.
func WithRateLimitTierHandler(tier RateLimitTier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithRateLimitTier(r.Context(), tier)))
		})
	}
}

// RateLimiter is a per-client token bucket keyed by tier and client IP.
type RateLimiter struct {
	store *limiterStore
	cfg   config.RateLimitConfig
	env   string
}

func NewRateLimiter(cfg config.RateLimitConfig, env string) *RateLimiter {
	return &RateLimiter{store: newLimiterStore(cfg), cfg: cfg, env: env}
}

// Middleware enforces the tier found in the request context, defaulting to
// TierPublic.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz", "/readyz", "/health", "/metrics":
			next.ServeHTTP(w, r)
			return
		}

		tier := TierPublic
		if value, ok := r.Context().Value(rateLimitTierKey).(RateLimitTier); ok {
			tier = value
		}

		limiter := l.store.limiter(tier, clientKey(r, l.cfg.TrustedProxyCIDRs))
		if limiter == nil || limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Retry-After", strconv.Itoa(l.store.retryAfterSeconds(tier)))
		problem.Write(w, r, http.StatusTooManyRequests, problem.TypeRateLimited, "Слишком много запросов, попробуйте позже", nil, l.env)
	})
}

// Stop ends the background cleanup.
func (l *RateLimiter) Stop() {
	l.store.Stop()
}

type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	perMinute map[RateLimitTier]int
	stopOnce  sync.Once
	stop      chan struct{}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(cfg config.RateLimitConfig) *limiterStore {
	store := &limiterStore{
		limiters: make(map[string]*limiterEntry),
		perMinute: map[RateLimitTier]int{
			TierPublic: cfg.PublicPerMinute,
			TierAuth:   cfg.AuthPerMinute,
		},
		stop: make(chan struct{}),
	}
	go store.cleanupLoop()
	return store
}

// limiter returns the bucket for tier and key, or nil when the tier is
// unlimited.
func (s *limiterStore) limiter(tier RateLimitTier, key string) *rate.Limiter {
	limit := s.perMinute[tier]
	if limit <= 0 {
		return nil
	}

	lookup := string(tier) + ":" + key

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.limiters[lookup]; ok {
		entry.lastSeen = time.Now()
		return entry.limiter
	}

	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(limit)), limit)
	s.limiters[lookup] = &limiterEntry{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

// retryAfterSeconds is the time to refill one token, rounded up.
func (s *limiterStore) retryAfterSeconds(tier RateLimitTier) int {
	limit := s.perMinute[tier]
	if limit <= 0 {
		return 0
	}
	seconds := (60 + limit - 1) / limit
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

func (s *limiterStore) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.stop:
			return
		}
	}
}

func (s *limiterStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > limiterTTL {
			delete(s.limiters, key)
		}
	}
}

func (s *limiterStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// clientKey identifies the client. Forwarding headers are honoured only when
// the direct peer is a trusted proxy.
func clientKey(r *http.Request, trustedProxyCIDRs []string) string {
	if r == nil {
		return ""
	}

	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	if isTrustedProxy(remoteIP, trustedProxyCIDRs) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	return remoteIP
}

func isTrustedProxy(ip string, trustedCIDRs []string) bool {
	if len(trustedCIDRs) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidrStr := range trustedCIDRs {
		_, cidr, err := net.ParseCIDR(strings.TrimSpace(cidrStr))
		if err != nil {
			continue
		}
		if cidr.Contains(parsedIP) {
			return true
		}
	}
	return false
}
