package router

import (
	"github.com/labstack/echo/v4"

	"circulapp/internal/adapter/api/handler"
)

// SetupWebSocketRouter mounts /ws. The handler authenticates from the query string.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}
