package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"circulapp/internal/infrastructure/ratelimit"
	"circulapp/pkg/errors"
	"circulapp/pkg/logger"
)

// IPRateLimit throttles requests per client IP using the bucket for action.
func IPRateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			allowed, wait := limiter.Allow("ip:"+ip, action)
			if !allowed {
				seconds := errors.RetrySeconds(wait)
				logger.Warn("RATE LIMIT: %s blocked on %s for %ds", ip, action, seconds)
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return errors.TooManyRequests("Rate limit exceeded", wait)
			}
			return next(c)
		}
	}
}
