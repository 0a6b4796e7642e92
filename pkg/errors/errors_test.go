package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsFollowsWrapping(t *testing.T) {
	wrapped := fmt.Errorf("sending: %w", Forbidden("nope", nil))

	assert.True(t, Is(wrapped, "FORBIDDEN"))
	assert.False(t, Is(wrapped, "NOT_FOUND"))
	assert.False(t, Is(fmt.Errorf("plain"), "FORBIDDEN"))

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestTooManyRequestsMessage(t *testing.T) {
	err := TooManyRequests("Rate limit exceeded", 6*time.Second)
	assert.Equal(t, "Rate limit exceeded (retry after 6s)", err.Message)
	assert.Equal(t, http.StatusTooManyRequests, err.Status)
}

func TestNotFoundMessage(t *testing.T) {
	err := NotFound("Conversation", nil)
	assert.Equal(t, "Conversation not found", err.Message)
	assert.Equal(t, "NOT_FOUND: Conversation not found", err.Error())
}

func TestConflictMapsTo409(t *testing.T) {
	err := Conflict("Client message id already used", nil)
	assert.Equal(t, "CONFLICT", err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.True(t, Is(fmt.Errorf("send: %w", err), "CONFLICT"))
}
