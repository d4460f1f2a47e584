package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/utafrali/storefront/pkg/logger"
)

var rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "storefront_rate_limited_total",
	Help: "Mutations rejected by the per-session rate limiter.",
}, []string{"route"})

// RateLimitConfig sets the per-session token bucket. A non-positive RPS
// disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// IdleTTL is how long an unused session bucket is kept.
	IdleTTL time.Duration
}

// client tracks one session's limiter.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientStore holds per-session limiters and drops idle ones while serving.
type clientStore struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	nowFunc   func() time.Time
}

func newClientStore(cfg RateLimitConfig) *clientStore {
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &clientStore{
		clients: make(map[string]*client),
		limit:   rate.Limit(cfg.RPS),
		burst:   burst,
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// limiter returns (or creates) the limiter for key and sweeps idle entries
// at most once per ttl.
func (s *clientStore) limiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	if now.Sub(s.lastSweep) > s.ttl {
		for k, c := range s.clients {
			if now.Sub(c.lastSeen) > s.ttl {
				delete(s.clients, k)
			}
		}
		s.lastSweep = now
	}

	c, ok := s.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (s *clientStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// RateLimit returns middleware enforcing a token bucket per session. It must
// run after RequireSession; requests without a session are keyed by client IP.
// Rejected requests get 429 with a Retry-After hint.
func RateLimit(cfg RateLimitConfig, l *slog.Logger) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	store := newClientStore(cfg)
	retryAfter := strconv.Itoa(max(1, int(1/cfg.RPS)))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateKey(r)
			if !store.limiter(key).Allow() {
				rateLimited.WithLabelValues(r.URL.Path).Inc()
				logger.WithContext(r.Context(), l).WarnContext(r.Context(), "rate limit exceeded",
					slog.String("key", key),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", retryAfter)
				writeMiddlewareError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateKey(r *http.Request) string {
	if s, ok := SessionFromContext(r.Context()); ok {
		return "session:" + s.ID
	}
	return "ip:" + clientIP(r)
}

// clientIP prefers the first X-Forwarded-For hop, then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
