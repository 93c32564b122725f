package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// limiterIdleTTL is how long an idle client limiter is kept.
	limiterIdleTTL = 3 * time.Minute

	// limiterHighWater triggers a prune pass on insert.
	limiterHighWater = 10000
)

// RateLimitConfig holds configuration for ingestion rate limiting.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Enabled bool
	RPS     float64
	Burst   int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters tracks one token bucket per client. Clients are keyed by a
// hash of their address so the raw IP never lives in process state
// longer than the request that carried it.
type ipLimiters struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
}

func newIPLimiters(rps float64, burst int) *ipLimiters {
	return &ipLimiters{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

func (l *ipLimiters) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	client, ok := l.clients[key]
	if !ok {
		if len(l.clients) >= limiterHighWater {
			l.pruneLocked(now)
		}
		client = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = client
	}
	client.lastSeen = now
	return client.limiter.Allow()
}

func (l *ipLimiters) pruneLocked(now time.Time) {
	for key, client := range l.clients {
		if now.Sub(client.lastSeen) > limiterIdleTTL {
			delete(l.clients, key)
		}
	}
}

// RateLimitIngest returns middleware that rate limits event submissions
// per client. Exceeding the limit returns 429, never an error log entry
// carrying the client address.
func RateLimitIngest(cfg RateLimitConfig) func(http.Handler) http.Handler {
	limiters := newIPLimiters(cfg.RPS, cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			key := hashClientIP(getClientIP(r))
			if !limiters.allow(key, time.Now()) {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("client", key[:8]),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.Itoa(1))
				writeRateLimitError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeRateLimitError writes a 429 Too Many Requests response.
func writeRateLimitError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"Rate limit exceeded."}}`))
}

// hashClientIP derives an opaque limiter key from a client address.
func hashClientIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers for proxied requests.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For first (may contain multiple IPs)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// Take the first IP (client IP)
		for i := range xff {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	// Check X-Real-IP
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	return r.RemoteAddr
}
