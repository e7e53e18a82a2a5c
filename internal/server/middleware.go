package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/unselab/saju/internal/identity"
	"go.uber.org/zap"
)

const (
	analyzeRatePerSecond = 0.2
	analyzeBurst         = 5
)

// UserRequired rejects requests that arrived without a forwarded identity.
func (s *Server) UserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := identity.FromContext(c.Request.Context()); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// analyzeRateLimit throttles chart computation per user. Without redis the
// limiter is disabled and every request passes.
func (s *Server) analyzeRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || !s.limiter.Enabled() {
			c.Next()
			return
		}

		user, ok := identity.FromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		key := "analyze:" + user.ID
		res, err := s.limiter.Allow(c.Request.Context(), key, analyzeRatePerSecond, analyzeBurst)
		if err != nil {
			// Redis being down must not take the product down with it.
			s.log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			s.metrics.RecordRateLimitDenied(c.Request.Context(), "analyses")
			c.Header("Retry-After", fmt.Sprintf("%d", int(res.RetryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many analysis requests",
			}})
			return
		}
		c.Next()
	}
}
