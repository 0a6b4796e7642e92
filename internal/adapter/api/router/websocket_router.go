package router

import (
	"github.com/labstack/echo/v4"

	"installerhub/internal/adapter/api/handler"
	"installerhub/internal/adapter/api/middleware"
)

func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	e.GET("/ws", handler.GetWebSocketHandler().HandleWebSocket, authMiddleware.Authenticate)
}
