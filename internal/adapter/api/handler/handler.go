package handler

import (
	"installerhub/internal/adapter/api/middleware"
	ws "installerhub/internal/infrastructure/websocket"
	"installerhub/internal/usecase"
)

var (
	chatHandler         *ChatHandler
	notificationHandler *NotificationHandler
	activityHandler     *ActivityHandler
	webSocketHandler    *WebSocketHandler
	healthHandler       *HealthHandler
	devTokenHandler     *DevTokenHandler
)

func Setup(
	chatUseCase *usecase.ChatUseCase,
	archiver ExportArchiver,
	wsManager *ws.Manager,
	jwtAuth *middleware.JWTAuthenticator,
	stateBackend string,
) {
	chatHandler = NewChatHandler(chatUseCase, archiver)
	notificationHandler = NewNotificationHandler(chatUseCase.Notifications())
	activityHandler = NewActivityHandler(chatUseCase.Notifications())
	webSocketHandler = NewWebSocketHandler(wsManager, chatUseCase)
	healthHandler = NewHealthHandler(stateBackend, wsManager.ConnectedCount)
	devTokenHandler = NewDevTokenHandler(jwtAuth)
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetNotificationHandler() *NotificationHandler {
	return notificationHandler
}

func GetActivityHandler() *ActivityHandler {
	return activityHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return webSocketHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}
