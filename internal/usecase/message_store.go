package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"

	"installerhub/internal/domain/entity"
	"installerhub/internal/domain/repository"
	"installerhub/pkg/errors"
	"installerhub/pkg/logger"
)

// MessageStore keeps every conversation's messages in chronological order.
// Messages are append-only; only their status changes after storage.
type MessageStore struct {
	mu       sync.Mutex
	coll     stateCollection[map[string][]entity.Message]
	loaded   bool
	messages map[string][]entity.Message
}

func NewMessageStore(state repository.StateStore) *MessageStore {
	return &MessageStore{
		coll: stateCollection[map[string][]entity.Message]{store: state, key: repository.MessagesByConversationKey},
	}
}

func (s *MessageStore) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	messages, err := s.coll.load(ctx)
	if err != nil {
		logger.Error("MessageStore Error: Failed to load messages: %v", err)
		return err
	}
	if messages == nil {
		messages = make(map[string][]entity.Message)
	}
	for id := range messages {
		sortMessages(messages[id])
	}
	s.messages = messages
	s.loaded = true
	return nil
}

// persist writes the collection back. On failure the in-memory copy is
// dropped so the next call reloads the last durable state.
func (s *MessageStore) persist(ctx context.Context) error {
	if err := s.coll.save(ctx, s.messages); err != nil {
		logger.Error("MessageStore Error: Failed to persist messages: %v", err)
		s.loaded = false
		s.messages = nil
		return err
	}
	return nil
}

// Append stores msg under conversationID with a fresh ULID, so ids are
// unique across conversations and follow creation order. A message carrying
// a ClientMessageID the same sender already used in that conversation is a
// retry: the stored record comes back with created == false. Reusing the
// token for a different body is a conflict.
func (s *MessageStore) Append(ctx context.Context, conversationID string, msg entity.Message) (entity.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return entity.Message{}, false, err
	}

	list := s.messages[conversationID]
	if msg.ClientMessageID != "" {
		for _, existing := range list {
			if existing.SenderID != msg.SenderID || existing.ClientMessageID != msg.ClientMessageID {
				continue
			}
			if existing.Body != msg.Body {
				return entity.Message{}, false, errors.Conflict("Client message id already used for a different message", nil)
			}
			return cloneMessage(existing), false, nil
		}
	}
	msg.ID = ulid.Make().String()

	msg.ConversationID = conversationID
	msg.Status = entity.StatusSent
	if msg.Timestamp.IsZero() {
		msg.Timestamp = timeNow()
	}
	if msg.Kind == "" {
		msg.Kind = entity.KindText
		if len(msg.Attachments) > 0 {
			msg.Kind = entity.KindAttachment
		}
	}
	msg = cloneMessage(msg)

	s.messages[conversationID] = insertSorted(list, msg)
	if err := s.persist(ctx); err != nil {
		return entity.Message{}, false, err
	}

	return cloneMessage(msg), true, nil
}

// List returns the conversation's messages oldest first. Unknown
// conversations yield an empty slice.
func (s *MessageStore) List(ctx context.Context, conversationID string) ([]entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	list := s.messages[conversationID]
	out := make([]entity.Message, 0, len(list))
	for _, m := range list {
		out = append(out, cloneMessage(m))
	}
	return out, nil
}

// SetStatus advances every message matching match to status. Messages
// already at or past status are left alone. It returns the messages that moved.
func (s *MessageStore) SetStatus(ctx context.Context, conversationID string, match func(entity.Message) bool, status entity.MessageStatus) ([]entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	list := s.messages[conversationID]
	var changed []entity.Message
	for i := range list {
		if !match(list[i]) {
			continue
		}
		next, moved := list[i].Status.Advance(status)
		if !moved {
			continue
		}
		list[i].Status = next
		changed = append(changed, cloneMessage(list[i]))
	}

	if len(changed) == 0 {
		return nil, nil
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return changed, nil
}

// DeleteConversation drops every message of the conversation.
func (s *MessageStore) DeleteConversation(ctx context.Context, conversationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}

	removed := len(s.messages[conversationID])
	if _, ok := s.messages[conversationID]; !ok {
		return 0, nil
	}
	delete(s.messages, conversationID)
	if err := s.persist(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}

// Merge moves the messages of fromID into intoID, skipping ids intoID
// already holds, and removes fromID's list. It returns how many moved.
func (s *MessageStore) Merge(ctx context.Context, fromID, intoID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}

	from, ok := s.messages[fromID]
	if !ok || fromID == intoID {
		return 0, nil
	}

	into := s.messages[intoID]
	seen := make(map[string]bool, len(into))
	for _, m := range into {
		seen[m.ID] = true
	}

	moved := 0
	for _, m := range from {
		if seen[m.ID] {
			continue
		}
		m.ConversationID = intoID
		into = append(into, m)
		seen[m.ID] = true
		moved++
	}
	sortMessages(into)

	s.messages[intoID] = into
	delete(s.messages, fromID)
	if err := s.persist(ctx); err != nil {
		return 0, err
	}
	return moved, nil
}

func sortMessages(list []entity.Message) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Before(list[j])
	})
}

func insertSorted(list []entity.Message, msg entity.Message) []entity.Message {
	i := sort.Search(len(list), func(i int) bool {
		return msg.Before(list[i])
	})
	list = append(list, entity.Message{})
	copy(list[i+1:], list[i:])
	list[i] = msg
	return list
}

func cloneMessage(m entity.Message) entity.Message {
	if m.Attachments != nil {
		m.Attachments = append([]entity.Attachment(nil), m.Attachments...)
	}
	return m
}
