package daemon

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bluebird-io/portal/internal/i18n"
)

// RateLimiter is a per address token bucket guarding the auth routes, so a
// runaway front end cannot hammer the backend through the local service.
type RateLimiter struct {
	buckets       sync.Map // client address -> *bucket
	rate          float64  // tokens per second
	burst         int
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

func NewRateLimiter(rate float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}

	rl := &RateLimiter{
		rate:        rate,
		burst:       burst,
		stopCleanup: make(chan struct{}),
	}

	rl.cleanupTicker = time.NewTicker(5 * time.Minute)
	go rl.cleanup()

	logrus.WithFields(logrus.Fields{
		"rate":  rate,
		"burst": burst,
	}).Debugln("Rate limiter initialized")

	return rl
}

// Middleware rejects requests over the limit with the same result shape the
// auth handlers use.
func (rl *RateLimiter) Middleware(messages *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		if !rl.Allow(ip) {
			LogWithCorrelation(c).WithFields(logrus.Fields{
				"ip":   ip,
				"path": c.Request.URL.Path,
			}).Warnln("Rate limit exceeded")

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": messages.T(i18n.RateLimited),
			})
			return
		}

		c.Next()
	}
}

// Allow takes a token from the address's bucket, refilling it first for
// the time since the last call.
func (rl *RateLimiter) Allow(ip string) bool {
	now := time.Now()

	value, _ := rl.buckets.LoadOrStore(ip, &bucket{
		tokens:     float64(rl.burst),
		lastRefill: now,
	})

	b := value.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastRefill).Seconds() * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}

	return false
}

// cleanup drops buckets idle for ten minutes
func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			cutoff := time.Now().Add(-10 * time.Minute)

			rl.buckets.Range(func(key, value any) bool {
				b := value.(*bucket)
				b.mu.Lock()
				stale := b.lastRefill.Before(cutoff)
				b.mu.Unlock()

				if stale {
					rl.buckets.Delete(key)
				}
				return true
			})

		case <-rl.stopCleanup:
			rl.cleanupTicker.Stop()
			return
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// Size returns the number of tracked addresses
func (rl *RateLimiter) Size() int {
	count := 0
	rl.buckets.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
