package entity

import "time"

type ExportedConversation struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"created_at"`
	Tags         []string      `json:"tags"`
	IsImportant  bool          `json:"is_important"`
}

type ExportedMessage struct {
	ID         string      `json:"id"`
	SenderName string      `json:"sender_name"`
	Body       string      `json:"body"`
	Timestamp  time.Time   `json:"timestamp"`
	Kind       MessageKind `json:"kind"`
}

// ConversationExport is a read-only projection of one conversation.
type ConversationExport struct {
	Conversation ExportedConversation `json:"conversation"`
	Messages     []ExportedMessage    `json:"messages"`
	ExportedAt   time.Time            `json:"exported_at"`
}
