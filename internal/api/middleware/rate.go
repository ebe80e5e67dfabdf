package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// IdleTTL is how long a client may stay silent before its limiter is
	// forgotten. Zero disables eviction.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns production-ready rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		IdleTTL:           10 * time.Minute,
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters holds one token bucket per client IP.
type clientLimiters struct {
	cfg       RateLimitConfig
	now       func() time.Time
	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

func newClientLimiters(cfg RateLimitConfig) *clientLimiters {
	return &clientLimiters{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

func (l *clientLimiters) allow(ip string) bool {
	l.mu.Lock()
	now := l.now()
	l.sweep(now)

	cl, exists := l.clients[ip]
	if !exists {
		cl = &client{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = now
	limiter := cl.limiter
	l.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// sweep drops idle clients at most once per IdleTTL. Callers hold mu.
func (l *clientLimiters) sweep(now time.Time) {
	if l.cfg.IdleTTL <= 0 || now.Sub(l.lastSweep) < l.cfg.IdleTTL {
		return
	}
	for ip, cl := range l.clients {
		if now.Sub(cl.lastSeen) > l.cfg.IdleTTL {
			delete(l.clients, ip)
		}
	}
	l.lastSweep = now
}

func (l *clientLimiters) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func tooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": "rate limit exceeded",
		"code":  "rate_limited",
	})
}

// RateLimit creates a per-IP rate limiting middleware.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiters := newClientLimiters(cfg)

	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP()) {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}

// GlobalRateLimit creates a global rate limiting middleware.
func GlobalRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}
