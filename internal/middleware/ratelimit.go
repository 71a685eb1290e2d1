package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimit returns a middleware limiting each client IP to maxRequests
// per window. Counters live in Redis so the limit holds across instances.
// Polling clients hit the API every few seconds per tab, so the limit
// should leave generous headroom over the poll cadence.
func RateLimit(redisClient *redis.Client, maxRequests int, window time.Duration) gin.HandlerFunc {
	if redisClient == nil {
		panic("Redis client cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	return func(c *gin.Context) {
		key := "ratelimit:" + c.ClientIP()

		count, err := redisClient.Incr(c.Request.Context(), key).Result()
		if err != nil {
			logrus.WithError(err).Error("RateLimit: Redis INCR failed")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Rate limiting error"})
			c.Abort()
			return
		}
		// Only the request that creates the counter sets the expiry.
		// Refreshing the TTL on every hit would let a polling client's
		// lifetime count accumulate in a window that never closes.
		if count == 1 {
			if err := redisClient.Expire(c.Request.Context(), key, window).Err(); err != nil {
				logrus.WithError(err).Warn("RateLimit: failed to set counter expiry")
			}
		}

		if count > int64(maxRequests) {
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "Too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}
