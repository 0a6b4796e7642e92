package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"installerhub/internal/adapter/api/middleware"
	"installerhub/internal/domain/entity"
	"installerhub/pkg/errors"
	"installerhub/pkg/response"
)

const devTokenTTL = 30 * 24 * time.Hour

// DevTokenHandler mints viewer tokens for local development.
type DevTokenHandler struct {
	auth *middleware.JWTAuthenticator
}

func NewDevTokenHandler(auth *middleware.JWTAuthenticator) *DevTokenHandler {
	return &DevTokenHandler{auth: auth}
}

type devTokenRequest struct {
	ID   string            `json:"id" validate:"required"`
	Name string            `json:"name" validate:"required"`
	Role entity.SenderType `json:"role" validate:"required,oneof=installer admin"`
}

func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	if h.auth == nil {
		return response.Error(c, errors.BadRequest("Token issuing requires AUTH_PROVIDER=jwt", nil))
	}

	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	viewer := entity.Participant{ID: req.ID, Name: req.Name, Type: req.Role}
	token, err := h.auth.Issue(viewer, devTokenTTL)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to sign token", err))
	}

	return response.Success(c, map[string]interface{}{
		"token":  token,
		"viewer": viewer,
	})
}
