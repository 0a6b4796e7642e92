package middleware

import (
	"github.com/labstack/echo/v4"

	"installerhub/internal/domain/entity"
	"installerhub/pkg/errors"
	"installerhub/pkg/response"
)

type AdminMiddleware struct{}

func NewAdminMiddleware() *AdminMiddleware {
	return &AdminMiddleware{}
}

func (m *AdminMiddleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		viewer, ok := Viewer(c)
		if !ok {
			return response.Error(c, errors.Unauthorized("Authentication required", nil))
		}

		if viewer.Type != entity.SenderAdmin {
			return response.Error(c, errors.Forbidden("Admin privileges required", nil))
		}

		return next(c)
	}
}
