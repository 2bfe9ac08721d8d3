package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"coworking/internal/config"

	"golang.org/x/time/rate"
)

const (
	// limiterIdleTTL is how long a client bucket lives without requests.
	limiterIdleTTL = 10 * time.Minute
	limiterSweep   = time.Minute
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client. Buckets of clients that
// stayed silent for limiterIdleTTL are dropped on a later request.
type rateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	cfg       config.APIRateLimitConfig
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	return &rateLimiter{
		limiters: make(map[string]*limiterEntry),
		cfg:      cfg,
		ttl:      limiterIdleTTL,
		now:      time.Now,
	}
}

func (l *rateLimiter) allow(key string) bool {
	if l.cfg.RPS <= 0 {
		return true
	}
	return l.getLimiter(key).Allow()
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= limiterSweep {
		l.sweep(now)
	}

	if e, ok := l.limiters[key]; ok {
		e.lastSeen = now
		return e.lim
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	e := &limiterEntry{lim: rate.NewLimiter(rate.Limit(l.cfg.RPS), burst), lastSeen: now}
	l.limiters[key] = e
	return e.lim
}

// sweep must be called with l.mu held.
func (l *rateLimiter) sweep(now time.Time) {
	for key, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.ttl {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

func (l *rateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// clientKey identifies the caller by the first X-Forwarded-For hop or the remote host.
func clientKey(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}
