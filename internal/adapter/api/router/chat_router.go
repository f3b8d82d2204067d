package router

import (
	"github.com/labstack/echo/v4"

	"circulapp/internal/adapter/api/handler"
	"circulapp/internal/adapter/api/middleware"
)

// SetupChatRouter sets up the REST chat routes. Realtime events live on /ws.
func SetupChatRouter(api *echo.Group, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chats := api.Group("/chats")
	chats.Use(authMiddleware.Authenticate)

	chats.GET("", chatHandler.ListChats)
	chats.POST("/start", chatHandler.StartChat)
	chats.GET("/:id", chatHandler.GetChat)
	chats.PUT("/:id/read", chatHandler.MarkAsRead)
	chats.PUT("/:id/archive", chatHandler.ArchiveChat)

	chats.GET("/:id/messages", chatHandler.ListMessages)
	chats.POST("/:id/messages", chatHandler.SendMessage)
	chats.GET("/:id/messages/:messageId", chatHandler.GetMessage)
	chats.PUT("/:id/messages/:messageId", chatHandler.EditMessage)
	chats.DELETE("/:id/messages/:messageId", chatHandler.DeleteMessage)
	chats.POST("/:id/messages/:messageId/react", chatHandler.ReactToMessage)
}
