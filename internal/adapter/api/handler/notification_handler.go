package handler

import (
	"github.com/labstack/echo/v4"

	"installerhub/internal/usecase"
	"installerhub/pkg/errors"
	"installerhub/pkg/response"
	"installerhub/pkg/utils"
)

type NotificationHandler struct {
	bridge *usecase.NotificationBridge
}

func NewNotificationHandler(bridge *usecase.NotificationBridge) *NotificationHandler {
	return &NotificationHandler{bridge: bridge}
}

// List returns admin notifications newest first, paginated with page/limit.
func (h *NotificationHandler) List(c echo.Context) error {
	notifications, err := h.bridge.List(c.Request().Context(), c.QueryParam("unread") == "true")
	if err != nil {
		return response.Error(c, err)
	}

	params := utils.GetPaginationParams(c)
	start, end := params.Window(len(notifications))

	return response.Paginated(c, notifications[start:end], int64(len(notifications)), params.Page, params.PageSize)
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	count, err := h.bridge.UnreadCount(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int{"count": count})
}

func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	id := c.Param("id")
	found, err := h.bridge.MarkAsRead(c.Request().Context(), id)
	if err != nil {
		return response.Error(c, err)
	}
	if !found {
		return response.Error(c, errors.NotFound("Notification", nil))
	}
	return response.Success(c, map[string]string{"id": id})
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	count, err := h.bridge.MarkAllAsRead(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int{"count": count})
}
