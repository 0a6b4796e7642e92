package repository

import "context"

// Collection keys persisted by the conversation engine.
const (
	ConversationsKey          = "conversations"
	MessagesByConversationKey = "messages-by-conversation"
	AdminNotificationsKey     = "admin-notifications"
)

// StateStore is the durable key-value collaborator behind the engine.
// Values are opaque blobs; a missing key reports found == false.
type StateStore interface {
	Load(ctx context.Context, key string) (value []byte, found bool, err error)
	Save(ctx context.Context, key string, value []byte) error
}
