package router

import (
	"github.com/labstack/echo/v4"

	"installerhub/internal/adapter/api/handler"
	"installerhub/internal/adapter/api/middleware"
	"installerhub/internal/infrastructure/ratelimit"
)

func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware, rateLimit *middleware.RateLimitMiddleware) {
	chatHandler := handler.GetChatHandler()

	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	conversations.GET("", chatHandler.ListConversations)
	conversations.POST("", chatHandler.StartConversation, rateLimit.Limit(ratelimit.ActionStartConversation))
	conversations.GET("/:id/messages", chatHandler.GetMessages)
	conversations.POST("/:id/messages", chatHandler.SendMessage, rateLimit.Limit(ratelimit.ActionSendMessage))
	conversations.PUT("/:id/read", chatHandler.MarkAsRead)

	// Moderation is admin only
	conversations.DELETE("/:id", chatHandler.DeleteConversation, adminMiddleware.AdminOnly)
	conversations.PUT("/:id/important", chatHandler.ToggleImportant, adminMiddleware.AdminOnly)
	conversations.PUT("/:id/muted", chatHandler.ToggleMuted, adminMiddleware.AdminOnly)
	conversations.POST("/:id/tags", chatHandler.AddTags, adminMiddleware.AdminOnly)
	conversations.DELETE("/:id/tags", chatHandler.RemoveTags, adminMiddleware.AdminOnly)
	conversations.GET("/:id/export", chatHandler.Export, adminMiddleware.AdminOnly)
}
