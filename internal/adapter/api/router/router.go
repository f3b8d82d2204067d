package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"circulapp/internal/adapter/api/handler"
	"circulapp/internal/adapter/api/middleware"
	"circulapp/internal/infrastructure/ratelimit"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Product   *handler.ProductHandler
	Chat      *handler.ChatHandler
	Health    *handler.HealthHandler
	WebSocket *handler.WebSocketHandler
}

// Setup mounts every route. A nil limiter disables per-IP throttling.
func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	api := e.Group("/api")

	SetupAuthRouter(api, h.Auth, authMiddleware, limiter)
	SetupProductRouter(api, h.Product, authMiddleware)
	SetupChatRouter(api, h.Chat, authMiddleware)
	SetupHealthRouter(e, h.Health)
	if h.WebSocket != nil {
		SetupWebSocketRouter(e, h.WebSocket)
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
