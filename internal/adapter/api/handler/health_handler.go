package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	backend     string
	connections func() int
}

func NewHealthHandler(backend string, connections func() int) *HealthHandler {
	return &HealthHandler{
		backend:     backend,
		connections: connections,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status":        "Server is running",
		"time":          time.Now().Format(time.RFC3339),
		"state_backend": h.backend,
	}
	if h.connections != nil {
		body["websocket_clients"] = h.connections()
	}
	return c.JSON(http.StatusOK, body)
}
