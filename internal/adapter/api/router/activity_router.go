package router

import (
	"github.com/labstack/echo/v4"

	"installerhub/internal/adapter/api/handler"
	"installerhub/internal/adapter/api/middleware"
	"installerhub/internal/infrastructure/ratelimit"
)

func SetupActivityRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimit *middleware.RateLimitMiddleware) {
	activityHandler := handler.GetActivityHandler()

	activity := e.Group("/v1/activity")
	activity.Use(authMiddleware.Authenticate)
	activity.Use(rateLimit.Limit(ratelimit.ActionActivity))

	activity.POST("/payment-requests", activityHandler.PaymentRequest)
	activity.POST("/payment-comments", activityHandler.PaymentComment)
	activity.POST("/serial-submissions", activityHandler.SerialSubmission)
	activity.POST("/installers", activityHandler.NewInstaller)
}
