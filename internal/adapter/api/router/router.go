package router

import (
	"github.com/labstack/echo/v4"

	"installerhub/internal/adapter/api/middleware"
)

func Setup(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	adminMiddleware *middleware.AdminMiddleware,
	rateLimit *middleware.RateLimitMiddleware,
	environment string,
) {
	SetupChatRouter(e, authMiddleware, adminMiddleware, rateLimit)
	SetupNotificationRouter(e, authMiddleware, adminMiddleware)
	SetupActivityRouter(e, authMiddleware, rateLimit)
	SetupWebSocketRouter(e, authMiddleware)
	SetupHealthRouter(e)
	SetupDevRouter(e, environment)
}
