package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"installerhub/internal/infrastructure/ratelimit"
	"installerhub/pkg/errors"
	"installerhub/pkg/logger"
	"installerhub/pkg/response"
)

type RateLimitMiddleware struct {
	limiter *ratelimit.RateLimiter
}

func NewRateLimitMiddleware(limiter *ratelimit.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit charges one token of action per request to the authenticated
// viewer, falling back to the client IP.
func (m *RateLimitMiddleware) Limit(action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if viewer, ok := Viewer(c); ok {
				key = viewer.ID
			}

			allowed, wait := m.limiter.Allow(key, action)
			if !allowed {
				logger.Warn("RATE LIMIT: %s exceeded %s (retry in %v)", key, action, wait)
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded", wait.Round(time.Second)))
			}

			return next(c)
		}
	}
}
