package router

import (
	"github.com/labstack/echo/v4"

	"installerhub/internal/adapter/api/handler"
)

func SetupDevRouter(e *echo.Echo, environment string) {
	if environment != "development" {
		return
	}
	e.POST("/_dev/token", handler.GetDevTokenHandler().GenerateToken)
}
