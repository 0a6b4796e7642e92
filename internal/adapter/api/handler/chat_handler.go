package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"installerhub/internal/adapter/api/middleware"
	"installerhub/internal/domain/entity"
	"installerhub/internal/usecase"
	"installerhub/pkg/errors"
	"installerhub/pkg/logger"
	"installerhub/pkg/response"
)

// ExportArchiver persists an export outside the engine.
type ExportArchiver interface {
	Archive(ctx context.Context, export *entity.ConversationExport) (string, error)
}

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
	archiver    ExportArchiver
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase, archiver ExportArchiver) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
		archiver:    archiver,
	}
}

type sendMessageRequest struct {
	Body            string              `json:"body" validate:"required_without=Attachments"`
	Kind            string              `json:"kind" validate:"omitempty,oneof=text attachment image document"`
	Attachments     []attachmentRequest `json:"attachments" validate:"omitempty,dive"`
	ClientMessageID string              `json:"client_message_id"`
}

type attachmentRequest struct {
	Name        string `json:"name" validate:"required"`
	URL         string `json:"url" validate:"required,url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size" validate:"min=0"`
}

type tagsRequest struct {
	Tags []string `json:"tags" validate:"required,min=1,dive,notblank"`
}

func viewerFrom(c echo.Context) (entity.Participant, error) {
	viewer, ok := middleware.Viewer(c)
	if !ok {
		return entity.Participant{}, errors.Unauthorized("Authentication required", nil)
	}
	return viewer, nil
}

// ListConversations returns the caller's conversations in display order.
func (h *ChatHandler) ListConversations(c echo.Context) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	conversations, err := h.chatUseCase.ListConversations(c.Request().Context(), viewer)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conversations)
}

// StartConversation opens, or reuses, the calling installer's conversation.
func (h *ChatHandler) StartConversation(c echo.Context) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}
	if viewer.Type != entity.SenderInstaller {
		return response.Error(c, errors.Forbidden("Only installers can start a conversation", nil))
	}

	conversation, err := h.chatUseCase.StartConversation(c.Request().Context(), viewer)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, conversation)
}

func (h *ChatHandler) GetMessages(c echo.Context) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	messages, err := h.chatUseCase.GetMessages(c.Request().Context(), viewer, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, messages)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	attachments := make([]entity.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, entity.Attachment{
			Name:        a.Name,
			URL:         a.URL,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}

	msg, err := h.chatUseCase.Send(c.Request().Context(), usecase.SendMessageInput{
		ConversationID:  c.Param("id"),
		ClientMessageID: req.ClientMessageID,
		Sender:          viewer,
		Body:            req.Body,
		Kind:            entity.MessageKind(req.Kind),
		Attachments:     attachments,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, msg)
}

func (h *ChatHandler) MarkAsRead(c echo.Context) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	count, err := h.chatUseCase.MarkAsRead(c.Request().Context(), c.Param("id"), viewer)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int{"count": count})
}

func (h *ChatHandler) DeleteConversation(c echo.Context) error {
	id := c.Param("id")
	deleted, err := h.chatUseCase.DeleteConversation(c.Request().Context(), id)
	if err != nil {
		return response.Error(c, err)
	}
	if !deleted {
		return response.Error(c, errors.NotFound("Conversation", nil))
	}
	return response.Success(c, map[string]string{"id": id})
}

func (h *ChatHandler) ToggleImportant(c echo.Context) error {
	value, found, err := h.chatUseCase.ToggleImportant(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	if !found {
		return response.Error(c, errors.NotFound("Conversation", nil))
	}
	return response.Success(c, map[string]bool{"is_important": value})
}

func (h *ChatHandler) ToggleMuted(c echo.Context) error {
	value, found, err := h.chatUseCase.ToggleMuted(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	if !found {
		return response.Error(c, errors.NotFound("Conversation", nil))
	}
	return response.Success(c, map[string]bool{"is_muted": value})
}

func (h *ChatHandler) AddTags(c echo.Context) error {
	return h.changeTags(c, h.chatUseCase.AddTags)
}

func (h *ChatHandler) RemoveTags(c echo.Context) error {
	return h.changeTags(c, h.chatUseCase.RemoveTags)
}

func (h *ChatHandler) changeTags(c echo.Context, apply func(context.Context, string, []string) ([]string, bool, error)) error {
	var req tagsRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	tags, found, err := apply(c.Request().Context(), c.Param("id"), req.Tags)
	if err != nil {
		return response.Error(c, err)
	}
	if !found {
		return response.Error(c, errors.NotFound("Conversation", nil))
	}
	return response.Success(c, map[string][]string{"tags": tags})
}

// Export returns the conversation document and, with ?archive=true, also
// stores it in the export bucket.
func (h *ChatHandler) Export(c echo.Context) error {
	ctx := c.Request().Context()

	export, found, err := h.chatUseCase.Export(ctx, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	if !found {
		return response.Error(c, errors.NotFound("Conversation", nil))
	}

	if c.QueryParam("archive") != "true" {
		return response.Success(c, export)
	}

	if h.archiver == nil {
		return response.Error(c, errors.BadRequest("Export archiving is not configured", nil))
	}
	url, err := h.archiver.Archive(ctx, export)
	if err != nil {
		logger.Error("Export Error: Failed to archive conversation %s: %v", export.Conversation.ID, err)
		return response.Error(c, errors.Internal("Failed to archive export", err))
	}

	return response.Success(c, map[string]interface{}{
		"export": export,
		"url":    url,
	})
}
