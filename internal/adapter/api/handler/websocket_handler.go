package handler

import (
	"context"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"installerhub/internal/domain/entity"
	ws "installerhub/internal/infrastructure/websocket"
	"installerhub/internal/usecase"
	"installerhub/pkg/logger"
	"installerhub/pkg/response"
)

type WebSocketHandler struct {
	wsManager  *ws.Manager
	dispatcher *ws.Dispatcher
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewWebSocketHandler(wsManager *ws.Manager, chatUseCase *usecase.ChatUseCase) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:  wsManager,
		dispatcher: ws.NewDispatcher(socketCommands{chat: chatUseCase}),
	}
}

// HandleWebSocket upgrades an authenticated request and starts the pumps.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	// Upgrade has already written the HTTP error when it fails.
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("WebSocket: Upgrade failed for %s %s: %v", viewer.Type, viewer.ID, err)
		return nil
	}

	client := ws.NewClient(viewer, conn)
	if !h.wsManager.Add(client) {
		logger.Warn("WebSocket: Manager stopped, closing connection for %s", viewer.ID)
		conn.WriteMessage(gorillaws.CloseMessage, gorillaws.FormatCloseMessage(gorillaws.CloseGoingAway, "server shutting down"))
		conn.Close()
		return nil
	}

	go client.ReadPump(h.wsManager, h.dispatcher)
	go client.WritePump()

	return nil
}

// socketCommands adapts the chat usecase to the socket dispatcher.
type socketCommands struct {
	chat *usecase.ChatUseCase
}

func (s socketCommands) SendFromSocket(ctx context.Context, viewer entity.Participant, conversationID, tempID, body string) (*entity.Message, error) {
	return s.chat.Send(ctx, usecase.SendMessageInput{
		ConversationID:  conversationID,
		ClientMessageID: tempID,
		Sender:          viewer,
		Body:            body,
	})
}

func (s socketCommands) MarkAsRead(ctx context.Context, conversationID string, viewer entity.Participant) (int, error) {
	return s.chat.MarkAsRead(ctx, conversationID, viewer)
}
