package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"installerhub/internal/domain/entity"
	"installerhub/internal/infrastructure/ratelimit"
)

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func TestJWTAuthenticatorRoundTrip(t *testing.T) {
	auth := NewJWTAuthenticator("s3cret")
	viewer := entity.Participant{ID: "i1", Name: "Ann", Type: entity.SenderInstaller}

	token, err := auth.Issue(viewer, time.Hour)
	require.NoError(t, err)

	got, err := auth.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, viewer, got)

	_, err = NewJWTAuthenticator("other").Verify(context.Background(), token)
	assert.Error(t, err)

	expired, err := auth.Issue(viewer, -time.Minute)
	require.NoError(t, err)
	_, err = auth.Verify(context.Background(), expired)
	assert.Error(t, err)

	noRole, err := auth.Issue(entity.Participant{ID: "x", Type: "guest"}, time.Hour)
	require.NoError(t, err)
	_, err = auth.Verify(context.Background(), noRole)
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	auth := NewJWTAuthenticator("s3cret")
	mw := NewAuthMiddleware(auth)
	viewer := entity.Participant{ID: "i1", Name: "Ann", Type: entity.SenderInstaller}
	token, err := auth.Issue(viewer, time.Hour)
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		c, rec := newContext("/v1/conversations")
		c.Request().Header.Set("Authorization", "Bearer "+token)

		var seen entity.Participant
		err := mw.Authenticate(func(c echo.Context) error {
			seen, _ = Viewer(c)
			return okHandler(c)
		})(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, viewer, seen)
		assert.Equal(t, "i1", c.Get("uid"))
	})

	t.Run("query token", func(t *testing.T) {
		c, rec := newContext("/ws?token=" + token)
		require.NoError(t, mw.Authenticate(okHandler)(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		c, rec := newContext("/v1/conversations")
		require.NoError(t, mw.Authenticate(okHandler)(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		c, rec := newContext("/v1/conversations")
		c.Request().Header.Set("Authorization", "Token "+token)
		require.NoError(t, mw.Authenticate(okHandler)(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		c, rec := newContext("/v1/conversations")
		c.Request().Header.Set("Authorization", "Bearer garbage")
		require.NoError(t, mw.Authenticate(okHandler)(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAdminOnly(t *testing.T) {
	mw := NewAdminMiddleware()

	c, rec := newContext("/v1/admin/notifications")
	require.NoError(t, mw.AdminOnly(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newContext("/v1/admin/notifications")
	SetViewer(c, entity.Participant{ID: "i1", Type: entity.SenderInstaller})
	require.NoError(t, mw.AdminOnly(okHandler)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = newContext("/v1/admin/notifications")
	SetViewer(c, entity.Participant{ID: entity.AdminPoolID, Type: entity.SenderAdmin})
	require.NoError(t, mw.AdminOnly(okHandler)(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimitByViewer(t *testing.T) {
	limiter := ratelimit.NewRateLimiter()
	limiter.SetLimit("test", ratelimit.Limit{Burst: 2, Every: time.Hour})
	mw := NewRateLimitMiddleware(limiter).Limit("test")

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		c, rec := newContext("/v1/conversations/c1/messages")
		SetViewer(c, entity.Participant{ID: "i1", Type: entity.SenderInstaller})
		require.NoError(t, mw(okHandler)(c))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	c, rec := newContext("/v1/conversations/c1/messages")
	SetViewer(c, entity.Participant{ID: "i2", Type: entity.SenderInstaller})
	require.NoError(t, mw(okHandler)(c))
	assert.Equal(t, http.StatusNoContent, rec.Code, "buckets are per viewer")
}
