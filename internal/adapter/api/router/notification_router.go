package router

import (
	"github.com/labstack/echo/v4"

	"installerhub/internal/adapter/api/handler"
	"installerhub/internal/adapter/api/middleware"
)

func SetupNotificationRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	notificationHandler := handler.GetNotificationHandler()

	notifications := e.Group("/v1/admin/notifications")
	notifications.Use(authMiddleware.Authenticate)
	notifications.Use(adminMiddleware.AdminOnly)

	notifications.GET("", notificationHandler.List)
	notifications.GET("/unread-count", notificationHandler.UnreadCount)
	notifications.PUT("/read-all", notificationHandler.MarkAllAsRead)
	notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
}
