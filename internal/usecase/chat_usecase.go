package usecase

import (
	"context"
	"sync"
	"time"

	"installerhub/internal/domain/entity"
	"installerhub/internal/domain/repository"
	"installerhub/internal/infrastructure/eventhub"
	"installerhub/internal/infrastructure/metrics"
	"installerhub/pkg/errors"
	"installerhub/pkg/logger"
)

type ChatUseCase struct {
	// mu serializes operations that touch more than one component so a
	// send's message and conversation updates land together.
	mu sync.Mutex

	messages        *MessageStore
	registry        *ConversationRegistry
	tracker         *ReadStateTracker
	bridge          *NotificationBridge
	hub             *eventhub.Hub
	adminPool       entity.Participant
	deliveryLatency time.Duration
}

type ChatConfig struct {
	AdminPoolName   string
	DeliveryLatency time.Duration
}

// NewChatUseCase wires the engine components around one state store.
func NewChatUseCase(state repository.StateStore, hub *eventhub.Hub, cfg ChatConfig) *ChatUseCase {
	messages := NewMessageStore(state)
	registry := NewConversationRegistry(state, messages)

	name := cfg.AdminPoolName
	if name == "" {
		name = "Support Team"
	}

	return &ChatUseCase{
		messages:        messages,
		registry:        registry,
		tracker:         NewReadStateTracker(messages, registry),
		bridge:          NewNotificationBridge(state, hub),
		hub:             hub,
		adminPool:       entity.Participant{ID: entity.AdminPoolID, Name: name, Type: entity.SenderAdmin},
		deliveryLatency: cfg.DeliveryLatency,
	}
}

func (uc *ChatUseCase) Notifications() *NotificationBridge {
	return uc.bridge
}

func (uc *ChatUseCase) AdminPool() entity.Participant {
	return uc.adminPool
}

type SendMessageInput struct {
	// ConversationID may be empty for installers; their conversation is
	// found or created on the fly.
	ConversationID string
	// ClientMessageID lets a client retry a send without duplicating the
	// message. The stored message always gets its own id.
	ClientMessageID string
	Sender          entity.Participant
	Body            string
	Kind            entity.MessageKind
	Attachments     []entity.Attachment
}

// StartConversation returns the installer's conversation, creating it when needed.
func (uc *ChatUseCase) StartConversation(ctx context.Context, installer entity.Participant) (*entity.Conversation, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	conversation, _, err := uc.registry.FindOrCreate(ctx, installer, uc.adminPool)
	if err != nil {
		logger.Error("StartConversation Error: Failed to find or create conversation for installer %s: %v", installer.ID, err)
		return nil, err
	}
	conversation.UnreadCount = conversation.Unread.For(entity.SenderInstaller)
	return conversation, nil
}

// Send stores a message and returns once it has been delivered. The
// delivery wait cannot be cancelled once the message is stored.
func (uc *ChatUseCase) Send(ctx context.Context, input SendMessageInput) (*entity.Message, error) {
	uc.mu.Lock()

	conversationID, err := uc.resolveConversation(ctx, input)
	if err != nil {
		uc.mu.Unlock()
		return nil, err
	}

	sender := input.Sender
	if sender.Type == entity.SenderAdmin {
		sender.ID = uc.adminPoolSenderID(sender)
	}

	stored, created, err := uc.messages.Append(ctx, conversationID, entity.Message{
		ClientMessageID: input.ClientMessageID,
		SenderID:        sender.ID,
		SenderName:      sender.Name,
		SenderType:      sender.Type,
		Body:            input.Body,
		Kind:            input.Kind,
		Attachments:     input.Attachments,
	})
	if err != nil {
		uc.mu.Unlock()
		if errors.Is(err, "CONFLICT") {
			logger.Warn("Send: Client message id %s reused by %s in conversation %s", input.ClientMessageID, sender.ID, conversationID)
			return nil, err
		}
		logger.Error("Send Error: Failed to store message in conversation %s: %v", conversationID, err)
		return nil, err
	}
	if !created {
		uc.mu.Unlock()
		logger.Debug("Send: Message %s already stored in conversation %s", stored.ID, conversationID)
		return &stored, nil
	}

	if _, err := uc.registry.RecordMessage(ctx, conversationID, stored); err != nil {
		logger.Error("Send Error: Failed to update conversation %s after message %s: %v", conversationID, stored.ID, err)
	}

	uc.mu.Unlock()

	metrics.MessagesSent.WithLabelValues(string(stored.SenderType)).Inc()
	// notification_added goes out before the delivery events.
	if _, err := uc.bridge.OnMessageSent(ctx, stored); err != nil {
		logger.Error("Send Error: Failed to create admin notification for message %s: %v", stored.ID, err)
	}

	delivered := uc.awaitDelivery(stored)
	return &delivered, nil
}

func (uc *ChatUseCase) resolveConversation(ctx context.Context, input SendMessageInput) (string, error) {
	sender := input.Sender

	if input.ConversationID == "" {
		if sender.Type != entity.SenderInstaller {
			return "", errors.BadRequest("Conversation id is required for admin messages", nil)
		}
		conversation, _, err := uc.registry.FindOrCreate(ctx, sender, uc.adminPool)
		if err != nil {
			return "", err
		}
		return conversation.ID, nil
	}

	conversation, found, err := uc.registry.Get(ctx, input.ConversationID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.NotFound("Conversation", nil)
	}
	if sender.Type == entity.SenderInstaller && conversation.Installer().ID != sender.ID {
		logger.Warn("Send: Installer %s attempted to post in conversation %s", sender.ID, conversation.ID)
		return "", errors.Forbidden("Installer is not a participant in this conversation", nil)
	}
	return conversation.ID, nil
}

// adminPoolSenderID keeps the sending admin's own id when it is known, and
// falls back to the shared pool id.
func (uc *ChatUseCase) adminPoolSenderID(sender entity.Participant) string {
	if sender.ID == "" {
		return uc.adminPool.ID
	}
	return sender.ID
}

// awaitDelivery simulates the network acknowledgement: after the delivery
// latency the message becomes delivered and message_sent fires.
func (uc *ChatUseCase) awaitDelivery(msg entity.Message) entity.Message {
	ctx := context.Background()
	done := make(chan entity.Message, 1)

	deliver := func() {
		uc.mu.Lock()
		if _, err := uc.tracker.MarkDelivered(ctx, msg.ConversationID, msg.ID); err != nil {
			logger.Error("Send Error: Failed to mark message %s delivered: %v", msg.ID, err)
		}
		current := msg
		if list, err := uc.messages.List(ctx, msg.ConversationID); err == nil {
			for _, m := range list {
				if m.ID == msg.ID {
					current = m
					break
				}
			}
		}
		uc.mu.Unlock()

		uc.hub.Emit(ctx, eventhub.MessageSentEvent{Message: current})
		uc.hub.Emit(ctx, eventhub.MessageReceivedEvent{Message: current, Recipient: current.SenderType.Opposite()})
		done <- current
	}

	if uc.deliveryLatency <= 0 {
		deliver()
	} else {
		time.AfterFunc(uc.deliveryLatency, deliver)
	}
	return <-done
}

// MarkAsRead marks the other role's messages read for viewer and returns
// how many changed. Unknown conversations report zero.
func (uc *ChatUseCase) MarkAsRead(ctx context.Context, conversationID string, viewer entity.Participant) (int, error) {
	uc.mu.Lock()
	conversation, found, err := uc.registry.Get(ctx, conversationID)
	if err != nil || !found {
		uc.mu.Unlock()
		return 0, err
	}
	if viewer.Type == entity.SenderInstaller && conversation.Installer().ID != viewer.ID {
		uc.mu.Unlock()
		return 0, errors.Forbidden("Installer is not a participant in this conversation", nil)
	}

	changed, err := uc.tracker.MarkAsRead(ctx, conversationID, viewer.Type)
	uc.mu.Unlock()
	if err != nil {
		logger.Error("MarkAsRead Error: Failed to mark conversation %s read for %s: %v", conversationID, viewer.Type, err)
		return 0, err
	}

	if len(changed) > 0 {
		ids := make([]string, 0, len(changed))
		for _, m := range changed {
			ids = append(ids, m.ID)
		}
		uc.hub.Emit(ctx, eventhub.MessagesReadEvent{
			ConversationID: conversationID,
			Viewer:         viewer.Type,
			MessageIDs:     ids,
		})
	}
	return len(changed), nil
}

func (uc *ChatUseCase) ListConversations(ctx context.Context, viewer entity.Participant) ([]*entity.Conversation, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	conversations, err := uc.registry.ListFor(ctx, viewer.Type, viewer.ID)
	if err != nil {
		logger.Error("ListConversations Error: Failed to list conversations for %s %s: %v", viewer.Type, viewer.ID, err)
		return nil, err
	}
	return conversations, nil
}

// GetMessages returns a conversation's messages oldest first. Unknown
// conversations yield an empty list.
func (uc *ChatUseCase) GetMessages(ctx context.Context, viewer entity.Participant, conversationID string) ([]entity.Message, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	conversation, found, err := uc.registry.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !found {
		return []entity.Message{}, nil
	}
	if viewer.Type == entity.SenderInstaller && conversation.Installer().ID != viewer.ID {
		return nil, errors.Forbidden("Installer is not a participant in this conversation", nil)
	}
	return uc.messages.List(ctx, conversationID)
}

// DeleteConversation removes the conversation with all of its messages.
// It reports false when there was nothing to delete.
func (uc *ChatUseCase) DeleteConversation(ctx context.Context, conversationID string) (bool, error) {
	uc.mu.Lock()
	removed, err := uc.registry.Delete(ctx, conversationID)
	uc.mu.Unlock()
	if err != nil {
		logger.Error("DeleteConversation Error: Failed to delete conversation %s: %v", conversationID, err)
		return false, err
	}
	if removed == nil {
		return false, nil
	}

	logger.Info("DeleteConversation: Conversation %s removed", conversationID)
	uc.hub.Emit(ctx, eventhub.ConversationDeletedEvent{
		ConversationID: conversationID,
		InstallerID:    removed.Installer().ID,
	})
	return true, nil
}

func (uc *ChatUseCase) ToggleImportant(ctx context.Context, conversationID string) (bool, bool, error) {
	return uc.toggle(ctx, conversationID, FlagImportant)
}

func (uc *ChatUseCase) ToggleMuted(ctx context.Context, conversationID string) (bool, bool, error) {
	return uc.toggle(ctx, conversationID, FlagMuted)
}

func (uc *ChatUseCase) toggle(ctx context.Context, conversationID string, flag ConversationFlag) (bool, bool, error) {
	uc.mu.Lock()
	value, found, err := uc.registry.SetFlag(ctx, conversationID, flag)
	uc.mu.Unlock()
	if err != nil || !found {
		return false, found, err
	}

	uc.publishUpdate(ctx, conversationID)
	return value, true, nil
}

func (uc *ChatUseCase) AddTags(ctx context.Context, conversationID string, tags []string) ([]string, bool, error) {
	return uc.setTags(ctx, conversationID, tags, TagAdd)
}

func (uc *ChatUseCase) RemoveTags(ctx context.Context, conversationID string, tags []string) ([]string, bool, error) {
	return uc.setTags(ctx, conversationID, tags, TagRemove)
}

func (uc *ChatUseCase) setTags(ctx context.Context, conversationID string, tags []string, op TagOp) ([]string, bool, error) {
	uc.mu.Lock()
	result, found, err := uc.registry.SetTags(ctx, conversationID, tags, op)
	uc.mu.Unlock()
	if err != nil || !found {
		return nil, found, err
	}

	uc.publishUpdate(ctx, conversationID)
	return result, true, nil
}

func (uc *ChatUseCase) publishUpdate(ctx context.Context, conversationID string) {
	conversation, found, err := uc.registry.Get(ctx, conversationID)
	if err != nil || !found {
		return
	}
	uc.hub.Emit(ctx, eventhub.ConversationUpdatedEvent{Conversation: *conversation})
}

// Export projects one conversation into a serializable document without
// changing any engine state. found is false for unknown conversations.
func (uc *ChatUseCase) Export(ctx context.Context, conversationID string) (*entity.ConversationExport, bool, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	conversation, found, err := uc.registry.Get(ctx, conversationID)
	if err != nil || !found {
		return nil, false, err
	}

	msgs, err := uc.messages.List(ctx, conversationID)
	if err != nil {
		return nil, false, err
	}

	return BuildExport(conversation, msgs, timeNow()), true, nil
}

func BuildExport(conversation *entity.Conversation, msgs []entity.Message, exportedAt time.Time) *entity.ConversationExport {
	exported := &entity.ConversationExport{
		Conversation: entity.ExportedConversation{
			ID:           conversation.ID,
			Participants: append([]entity.Participant(nil), conversation.Participants...),
			CreatedAt:    conversation.CreatedAt,
			Tags:         append([]string{}, conversation.Tags...),
			IsImportant:  conversation.IsImportant,
		},
		Messages:   make([]entity.ExportedMessage, 0, len(msgs)),
		ExportedAt: exportedAt,
	}

	for _, m := range msgs {
		exported.Messages = append(exported.Messages, entity.ExportedMessage{
			ID:         m.ID,
			SenderName: m.SenderName,
			Body:       m.Body,
			Timestamp:  m.Timestamp,
			Kind:       m.Kind,
		})
	}
	return exported
}

// InstallerOf returns the installer participant id of a conversation.
func (uc *ChatUseCase) InstallerOf(ctx context.Context, conversationID string) (string, bool, error) {
	conversation, found, err := uc.registry.Get(ctx, conversationID)
	if err != nil || !found {
		return "", false, err
	}
	return conversation.Installer().ID, true, nil
}
