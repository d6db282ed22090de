package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joblens/harvester/config"
	"github.com/joblens/harvester/models"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL       = time.Hour
	limiterSweepInterval = 5 * time.Minute
)

// clientLimiters hands out one token bucket per client identity and evicts
// buckets idle past limiterIdleTTL so the map cannot grow without bound.
type clientLimiters struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rps     rate.Limit
	burst   int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(cfg config.RateLimitConfig) *clientLimiters {
	cl := &clientLimiters{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
	}
	go cl.sweep()
	return cl
}

func (cl *clientLimiters) allow(identity string) bool {
	cl.mu.Lock()
	b, ok := cl.buckets[identity]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(cl.rps, cl.burst)}
		cl.buckets[identity] = b
	}
	b.lastSeen = time.Now()
	cl.mu.Unlock()

	return b.limiter.Allow()
}

func (cl *clientLimiters) sweep() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-limiterIdleTTL)
		cl.mu.Lock()
		for id, b := range cl.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(cl.buckets, id)
			}
		}
		cl.mu.Unlock()
	}
}

// RateLimit returns per-identity (API key or IP) token-bucket rate limiting
// middleware powered by golang.org/x/time/rate.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	limiters := newClientLimiters(cfg)

	return func(c *gin.Context) {
		// Prefer API key as identity (set by auth middleware); fall back to IP.
		identity := c.ClientIP()
		if key, exists := c.Get("api_key"); exists {
			identity = key.(string)
		}

		if !limiters.allow(identity) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}

		c.Next()
	}
}
