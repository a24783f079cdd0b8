package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per client IP. Idle buckets expire.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *cache.Cache
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: cache.New(10*time.Minute, 20*time.Minute),
	}
}

// Allow reports whether key may make another request now.
func (r *RateLimiter) Allow(key string) bool {
	if v, ok := r.limiters.Get(key); ok {
		r.limiters.SetDefault(key, v)
		return v.(*rate.Limiter).Allow()
	}
	l := rate.NewLimiter(r.limit, r.burst)
	if err := r.limiters.Add(key, l, cache.DefaultExpiration); err != nil {
		// Lost the race to another request from the same client.
		if v, ok := r.limiters.Get(key); ok {
			l = v.(*rate.Limiter)
		}
	}
	return l.Allow()
}

// RateLimit answers 429 once the caller's bucket is empty.
func RateLimit(r *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
			return
		}
		c.Next()
	}
}
