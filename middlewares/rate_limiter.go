package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type RateLimiter struct {
	rate     int
	interval time.Duration
	ips      map[string][]time.Time
	mu       sync.Mutex
}

func NewRateLimiter(rate int, interval int) *RateLimiter {
	return &RateLimiter{
		rate:     rate,
		interval: time.Duration(interval) * time.Second,
		ips:      make(map[string][]time.Time),
	}
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		rl.mu.Lock()
		defer rl.mu.Unlock()

		now := time.Now()
		if _, exists := rl.ips[ip]; !exists {
			rl.ips[ip] = []time.Time{now}
			c.Next()
			return
		}

		requests := rl.ips[ip]
		cutoff := now.Add(-rl.interval)
		valid := make([]time.Time, 0)

		for _, t := range requests {
			if t.After(cutoff) {
				valid = append(valid, t)
			}
		}

		if len(valid) >= rl.rate {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}

		rl.ips[ip] = append(valid, now)
		c.Next()
	}
}

// PaymentRateLimiter is a tighter per-IP limiter for the charge endpoint.
// A card submission should never arrive in bursts; anything above the limit
// is a misbehaving client or a retry storm.
type PaymentRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	r        rate.Limit
	burst    int
}

func NewPaymentRateLimiter(perMinute int, burst int) *PaymentRateLimiter {
	return &PaymentRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
	}
}

func (prl *PaymentRateLimiter) limiterFor(ip string) *rate.Limiter {
	prl.mu.Lock()
	defer prl.mu.Unlock()

	limiter, exists := prl.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(prl.r, prl.burst)
		prl.limiters[ip] = limiter
	}
	return limiter
}

func (prl *PaymentRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !prl.limiterFor(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many payment attempts, please wait a moment",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
