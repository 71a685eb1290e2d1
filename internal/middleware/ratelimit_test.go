package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitRouter(t *testing.T, maxRequests int, window time.Duration) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	router := gin.New()
	router.Use(RateLimit(client, maxRequests, window))
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, mr
}

func doRequest(router *gin.Engine) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_SteadyPollerNeverBlocked(t *testing.T) {
	router, mr := newRateLimitRouter(t, 120, time.Minute)

	// A chat tab polls every 3 seconds, far under 120 req/min. The
	// counter window must close and reopen instead of accumulating the
	// lifetime count, or the poller would be blocked a few minutes in.
	for i := 0; i < 300; i++ {
		code := doRequest(router)
		require.Equal(t, http.StatusOK, code, "request %d", i+1)
		mr.FastForward(3 * time.Second)
	}
}

func TestRateLimit_BurstOverLimitBlocked(t *testing.T) {
	router, _ := newRateLimitRouter(t, 5, time.Minute)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router))
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router))
}

func TestRateLimit_WindowExpiryUnblocks(t *testing.T) {
	router, mr := newRateLimitRouter(t, 5, time.Minute)

	for i := 0; i < 6; i++ {
		doRequest(router)
	}
	require.Equal(t, http.StatusTooManyRequests, doRequest(router))

	mr.FastForward(time.Minute + time.Second)

	assert.Equal(t, http.StatusOK, doRequest(router))
}

func TestRateLimit_RepeatedHitsDoNotRefreshWindow(t *testing.T) {
	router, mr := newRateLimitRouter(t, 5, time.Minute)

	// httptest requests all arrive from 192.0.2.1.
	const key = "ratelimit:192.0.2.1"

	require.Equal(t, http.StatusOK, doRequest(router))
	ttlAfterFirst := mr.TTL(key)

	mr.FastForward(30 * time.Second)
	require.Equal(t, http.StatusOK, doRequest(router))

	// The second hit must not push the expiry back out to the full
	// window.
	assert.Less(t, mr.TTL(key), ttlAfterFirst)
}
