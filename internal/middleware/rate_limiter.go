package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/orderdesk/orderdesk-api/pkg/httputil"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
}

// RateLimiter throttles per client IP. Buckets are created lazily; traffic
// from one noisy client does not starve the rest.
type RateLimiter struct {
	config  RateLimiterConfig
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = rate.NewLimiter(rl.config.Rate, rl.config.Burst)
		rl.buckets[key] = b
	}
	return b
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.bucket(c.ClientIP()).Allow() {
			c.Abort()
			httputil.RespondWithStatus(c, http.StatusTooManyRequests,
				"RATE_LIMITED", "rate limit exceeded")
			return
		}
		c.Next()
	}
}
