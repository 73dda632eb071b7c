package server

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"gitlab.com/bunkercoin/dashboard_api/actions"
	"gitlab.com/bunkercoin/dashboard_api/config"
	"gitlab.com/bunkercoin/dashboard_api/httputils"
	"gitlab.com/bunkercoin/dashboard_api/monitor"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps one token bucket per client ip
type ipRateLimiter struct {
	cfg      config.RateLimitConfig
	lock     sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

func newIPRateLimiter(cfg config.RateLimitConfig) *ipRateLimiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 10 * time.Minute
	}
	return &ipRateLimiter{
		cfg:      cfg,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// cleanup drops the buckets of clients idle for longer than the idle timeout
func (l *ipRateLimiter) cleanup() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	now := l.now()
	removed := 0
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.cfg.IdleTimeout {
			delete(l.visitors, ip)
			removed++
		}
	}
	return removed
}

func (l *ipRateLimiter) cleanupLoop(ctx context.Context) {
	if !l.cfg.Enabled {
		return
	}
	ticker := time.NewTicker(l.cfg.IdleTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

// Middleware rejects requests above the configured rate with 429
func (l *ipRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.cfg.Enabled || l.allow(c.ClientIP()) {
			c.Next()
			return
		}
		monitor.RateLimited.Inc()
		retry := 1
		if l.cfg.RequestsPerSecond > 0 && l.cfg.RequestsPerSecond < 1 {
			retry = int(1/l.cfg.RequestsPerSecond + 0.5)
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(actions.TooManyRequests, httputils.RequestError{Error: "Too many requests"})
	}
}
