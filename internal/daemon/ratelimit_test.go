package daemon

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/bluebird-io/portal/internal/i18n"
)

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5.0, 0)
	defer rl.Stop()

	assert.Equal(t, 5.0, rl.rate)
	assert.Equal(t, 1, rl.burst)
	assert.NotNil(t, rl.cleanupTicker)
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(5.0, 3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("192.168.1.1"), "request %d should be allowed within burst", i+1)
	}
	assert.False(t, rl.Allow("192.168.1.1"))

	// Other addresses have their own bucket
	assert.True(t, rl.Allow("192.168.1.2"))
	assert.Equal(t, 2, rl.Size())
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := NewRateLimiter(10.0, 1)
	defer rl.Stop()

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	// 10 tokens per second refills one in 100ms
	time.Sleep(150 * time.Millisecond)

	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1.0, 1)
	rl.Stop()
	rl.Stop()
}

func TestRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(0.001, 1)
	defer rl.Stop()

	router := gin.New()
	router.Use(rl.Middleware(i18n.New("en")))
	router.GET("/limited", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.JSONEq(t, `{"success":false,"message":"Too many requests, please try again later"}`, second.Body.String())
}
