package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"omnia/internal/logging"
)

// RateLimit limits requests per client IP. rate uses the limiter format,
// e.g. "10-M" for ten per minute.
func RateLimit(rate string, log logging.Logger) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	l := limiter.New(memory.NewStore(), r)

	return mgin.NewMiddleware(l,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too many requests, try again later",
				"code":       "rate_limited",
				"request_id": GetRequestID(c),
			})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			log.Error(c.Request.Context(), "rate limiter failed", "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":      "service unavailable",
				"code":       "rate_limiter_error",
				"request_id": GetRequestID(c),
			})
		}),
	), nil
}
