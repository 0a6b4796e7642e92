package eventhub

import "installerhub/internal/domain/entity"

type Name string

const (
	MessageSent          Name = "message_sent"
	MessageReceived      Name = "message_received"
	MessagesRead         Name = "messages_read"
	ConversationDeleted  Name = "conversation_deleted"
	ConversationUpdated  Name = "conversation_updated"
	NotificationAdded    Name = "notification_added"
	NotificationRead     Name = "notification_read"
	AllNotificationsRead Name = "all_notifications_read"
)

// Event is the closed set of payloads the hub carries. Each payload type
// reports the name it is published under.
type Event interface {
	EventName() Name
}

type MessageSentEvent struct {
	Message entity.Message `json:"message"`
}

func (MessageSentEvent) EventName() Name { return MessageSent }

// MessageReceivedEvent is addressed to the role on the other side of the sender.
type MessageReceivedEvent struct {
	Message   entity.Message    `json:"message"`
	Recipient entity.SenderType `json:"recipient"`
}

func (MessageReceivedEvent) EventName() Name { return MessageReceived }

type MessagesReadEvent struct {
	ConversationID string            `json:"conversation_id"`
	Viewer         entity.SenderType `json:"viewer"`
	MessageIDs     []string          `json:"message_ids"`
}

func (MessagesReadEvent) EventName() Name { return MessagesRead }

type ConversationDeletedEvent struct {
	ConversationID string `json:"conversation_id"`
	InstallerID    string `json:"installer_id"`
}

func (ConversationDeletedEvent) EventName() Name { return ConversationDeleted }

type ConversationUpdatedEvent struct {
	Conversation entity.Conversation `json:"conversation"`
}

func (ConversationUpdatedEvent) EventName() Name { return ConversationUpdated }

type NotificationAddedEvent struct {
	Notification entity.Notification `json:"notification"`
}

func (NotificationAddedEvent) EventName() Name { return NotificationAdded }

type NotificationReadEvent struct {
	NotificationID string `json:"notification_id"`
}

func (NotificationReadEvent) EventName() Name { return NotificationRead }

type AllNotificationsReadEvent struct {
	Count int `json:"count"`
}

func (AllNotificationsReadEvent) EventName() Name { return AllNotificationsRead }
