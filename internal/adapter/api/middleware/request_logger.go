package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"circulapp/internal/infrastructure/metrics"
	"circulapp/pkg/logger"
)

// RequestLogger writes one structured line per request and records the
// request metrics.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			latency := time.Since(start)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordRequest(req.Method, route, strconv.Itoa(res.Status), latency.Seconds())

			log := logger.Get()
			event := log.Info()
			if res.Status >= 500 {
				event = log.Error()
			} else if res.Status >= 400 {
				event = log.Warn()
			}
			if uid, ok := c.Get("uid").(string); ok {
				event = event.Str("user_id", uid)
			}
			event.
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", latency).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return nil
		}
	}
}
