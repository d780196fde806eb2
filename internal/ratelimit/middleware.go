package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/abduss/contactbook/internal/logger"
	"github.com/abduss/contactbook/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Middleware rejects requests over the limit with 429. The key is the client
// IP plus the matched route. Limiter failures let the request through.
func Middleware(l Limiter, retryAfter time.Duration) gin.HandlerFunc {
	retry := strconv.Itoa(int(retryAfter.Seconds()))
	return func(c *gin.Context) {
		key := c.ClientIP() + "|" + c.FullPath()

		allowed, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			logger.FromGin(c).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			metrics.ObserveAuthEvent(metrics.EventRateLimited)
			c.Header("Retry-After", retry)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
