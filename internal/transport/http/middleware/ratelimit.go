package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"books-api/internal/metrics"
	"books-api/internal/ratelimit"
	"books-api/internal/transport/http/response"
)

// RateLimit throttles requests per client ip. Limiter failures let the
// request through.
func RateLimit(limiter ratelimit.Limiter, route string, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), route+":"+c.ClientIP())
		if err != nil {
			log.WithError(err).WithField("route", route).Warn("rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			metrics.RateLimitedTotal.WithLabelValues(route).Inc()
			response.Error(c, http.StatusTooManyRequests, response.MsgTooManyRequests)
			return
		}
		c.Next()
	}
}
