package router

import (
	"github.com/labstack/echo/v4"

	"circulapp/internal/adapter/api/handler"
	"circulapp/internal/adapter/api/middleware"
	"circulapp/internal/infrastructure/ratelimit"
)

func SetupAuthRouter(api *echo.Group, authHandler *handler.AuthHandler, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	public := api.Group("/auth")
	if limiter != nil {
		public.POST("/register", authHandler.Register, middleware.IPRateLimit(limiter, ratelimit.ActionAuth))
		public.POST("/login", authHandler.Login, middleware.IPRateLimit(limiter, ratelimit.ActionAuth))
	} else {
		public.POST("/register", authHandler.Register)
		public.POST("/login", authHandler.Login)
	}

	public.GET("/profile", authHandler.GetProfile, authMiddleware.Authenticate)
	public.PUT("/profile", authHandler.UpdateProfile, authMiddleware.Authenticate)
}
