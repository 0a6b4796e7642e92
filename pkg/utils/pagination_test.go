package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func params(target string) PaginationParams {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return GetPaginationParams(e.NewContext(req, httptest.NewRecorder()))
}

func TestGetPaginationParams(t *testing.T) {
	assert.Equal(t, PaginationParams{Page: 1, PageSize: 20, Offset: 0}, params("/"))
	assert.Equal(t, PaginationParams{Page: 3, PageSize: 5, Offset: 10}, params("/?page=3&limit=5"))
	assert.Equal(t, PaginationParams{Page: 1, PageSize: 20, Offset: 0}, params("/?page=-2&limit=500"))
}

func TestWindow(t *testing.T) {
	p := PaginationParams{Page: 2, PageSize: 5, Offset: 5}

	start, end := p.Window(12)
	assert.Equal(t, 5, start)
	assert.Equal(t, 10, end)

	start, end = p.Window(7)
	assert.Equal(t, 5, start)
	assert.Equal(t, 7, end)

	start, end = p.Window(3)
	assert.Equal(t, 3, start)
	assert.Equal(t, 3, end)
}
