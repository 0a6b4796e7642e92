package usecase

import (
	"context"

	"installerhub/internal/domain/entity"
	"installerhub/internal/infrastructure/metrics"
)

// ReadStateTracker moves messages along sent -> delivered -> read and keeps
// the registry's unread counters in step.
type ReadStateTracker struct {
	messages *MessageStore
	registry *ConversationRegistry
}

func NewReadStateTracker(messages *MessageStore, registry *ConversationRegistry) *ReadStateTracker {
	return &ReadStateTracker{
		messages: messages,
		registry: registry,
	}
}

// MarkAsRead marks every message written by the other role as read for
// viewer and clears the viewer's unread counter. It returns the messages
// that changed; an unknown conversation yields none.
func (t *ReadStateTracker) MarkAsRead(ctx context.Context, conversationID string, viewer entity.SenderType) ([]entity.Message, error) {
	changed, err := t.messages.SetStatus(ctx, conversationID, func(m entity.Message) bool {
		return m.SenderType != viewer
	}, entity.StatusRead)
	if err != nil {
		return nil, err
	}

	if _, err := t.registry.MarkRead(ctx, conversationID, viewer); err != nil {
		return nil, err
	}

	if len(changed) > 0 {
		metrics.MessagesRead.WithLabelValues(string(viewer)).Add(float64(len(changed)))
	}
	return changed, nil
}

// MarkDelivered acknowledges one message. It is a no-op for messages that
// are already delivered or read.
func (t *ReadStateTracker) MarkDelivered(ctx context.Context, conversationID, messageID string) (bool, error) {
	changed, err := t.messages.SetStatus(ctx, conversationID, func(m entity.Message) bool {
		return m.ID == messageID
	}, entity.StatusDelivered)
	if err != nil {
		return false, err
	}
	return len(changed) > 0, nil
}
