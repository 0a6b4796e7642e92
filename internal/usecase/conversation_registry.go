package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"installerhub/internal/domain/entity"
	"installerhub/internal/domain/repository"
	"installerhub/internal/infrastructure/metrics"
	"installerhub/pkg/logger"
)

type ConversationFlag string

const (
	FlagImportant ConversationFlag = "is_important"
	FlagMuted     ConversationFlag = "is_muted"
)

type TagOp string

const (
	TagAdd    TagOp = "add"
	TagRemove TagOp = "remove"
)

// ConversationRegistry owns the conversation list in display order and the
// fields derived from each conversation's messages.
type ConversationRegistry struct {
	mu            sync.Mutex
	coll          stateCollection[[]*entity.Conversation]
	loaded        bool
	conversations []*entity.Conversation
	messages      *MessageStore
}

func NewConversationRegistry(state repository.StateStore, messages *MessageStore) *ConversationRegistry {
	return &ConversationRegistry{
		coll:     stateCollection[[]*entity.Conversation]{store: state, key: repository.ConversationsKey},
		messages: messages,
	}
}

func (r *ConversationRegistry) ensureLoaded(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	conversations, err := r.coll.load(ctx)
	if err != nil {
		logger.Error("ConversationRegistry Error: Failed to load conversations: %v", err)
		return err
	}
	r.conversations = conversations
	r.loaded = true
	return nil
}

func (r *ConversationRegistry) persist(ctx context.Context) error {
	if err := r.coll.save(ctx, r.conversations); err != nil {
		logger.Error("ConversationRegistry Error: Failed to persist conversations: %v", err)
		r.loaded = false
		r.conversations = nil
		return err
	}
	return nil
}

func (r *ConversationRegistry) indexOf(id string) int {
	for i, c := range r.conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (r *ConversationRegistry) resort() {
	sort.SliceStable(r.conversations, func(i, j int) bool {
		return r.conversations[i].SortsBefore(r.conversations[j])
	})
}

// FindOrCreate returns the installer's conversation, creating it at the head
// of the list when none exists yet.
func (r *ConversationRegistry) FindOrCreate(ctx context.Context, installer, admin entity.Participant) (*entity.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, false, err
	}

	for _, c := range r.conversations {
		if c.Installer().ID == installer.ID {
			return c.Clone(), false, nil
		}
	}

	installer.Type = entity.SenderInstaller
	admin.Type = entity.SenderAdmin
	conversation := &entity.Conversation{
		ID:           uuid.New().String(),
		Participants: []entity.Participant{installer, admin},
		Tags:         []string{},
		CreatedAt:    timeNow(),
	}

	r.conversations = append([]*entity.Conversation{conversation}, r.conversations...)
	if err := r.persist(ctx); err != nil {
		return nil, false, err
	}

	logger.Info("ConversationRegistry: Created conversation %s for installer %s", conversation.ID, installer.ID)
	return conversation.Clone(), true, nil
}

// Get returns a copy of one conversation. found is false for unknown ids.
func (r *ConversationRegistry) Get(ctx context.Context, id string) (*entity.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, false, err
	}

	i := r.indexOf(id)
	if i < 0 {
		return nil, false, nil
	}
	return r.conversations[i].Clone(), true, nil
}

// RecordMessage refreshes the preview, bumps the unread counter of the role
// opposite the sender and moves the conversation to its new list position.
func (r *ConversationRegistry) RecordMessage(ctx context.Context, conversationID string, msg entity.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return false, err
	}

	i := r.indexOf(conversationID)
	if i < 0 {
		return false, nil
	}

	c := r.conversations[i]
	if c.LastMessage.IsOlderThan(msg) {
		c.LastMessage = entity.NewLastMessage(msg)
	}
	if msg.Status != entity.StatusRead {
		reader := msg.SenderType.Opposite()
		c.Unread.Set(reader, c.Unread.For(reader)+1)
	}
	r.resort()

	if err := r.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// MarkRead clears the viewer's unread counter. The list order is left as is.
func (r *ConversationRegistry) MarkRead(ctx context.Context, conversationID string, viewer entity.SenderType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return false, err
	}

	i := r.indexOf(conversationID)
	if i < 0 {
		return false, nil
	}

	c := r.conversations[i]
	if c.Unread.For(viewer) == 0 {
		return true, nil
	}
	c.Unread.Set(viewer, 0)
	if err := r.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ListFor returns the conversations visible to the viewer in display order.
// Admins share one pool and see every conversation; installers see their own.
// Duplicates per installer are merged first and every cached counter is
// recomputed from the message store. The list is re-sorted only when a merge
// or a corrected preview moved a conversation; counter fixes keep the order.
func (r *ConversationRegistry) ListFor(ctx context.Context, viewerType entity.SenderType, viewerID string) ([]*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	merged, err := r.dedupe(ctx)
	if err != nil {
		return nil, err
	}

	dirty, reorder := merged, merged
	for _, c := range r.conversations {
		countersChanged, previewChanged, err := r.recompute(ctx, c)
		if err != nil {
			return nil, err
		}
		dirty = dirty || countersChanged || previewChanged
		reorder = reorder || previewChanged
	}

	if reorder {
		r.resort()
	}
	if dirty {
		if err := r.persist(ctx); err != nil {
			return nil, err
		}
	}

	out := make([]*entity.Conversation, 0, len(r.conversations))
	for _, c := range r.conversations {
		if viewerType == entity.SenderInstaller && c.Installer().ID != viewerID {
			continue
		}
		cp := c.Clone()
		cp.UnreadCount = cp.Unread.For(viewerType)
		out = append(out, cp)
	}
	return out, nil
}

// dedupe keeps, per installer, the conversation that sorts first and folds
// the others into it, messages included.
func (r *ConversationRegistry) dedupe(ctx context.Context) (bool, error) {
	ranked := append([]*entity.Conversation(nil), r.conversations...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SortsBefore(ranked[j])
	})

	keep := make(map[string]*entity.Conversation)
	drop := make(map[string]bool)
	for _, c := range ranked {
		installerID := c.Installer().ID
		primary, ok := keep[installerID]
		if !ok {
			keep[installerID] = c
			continue
		}

		moved, err := r.messages.Merge(ctx, c.ID, primary.ID)
		if err != nil {
			return false, err
		}
		mergeConversation(primary, c)
		drop[c.ID] = true

		metrics.ConversationsMerged.Inc()
		logger.Warn("ConversationRegistry: Merged duplicate conversation %s into %s for installer %s (%d messages moved)",
			c.ID, primary.ID, installerID, moved)
	}

	if len(drop) == 0 {
		return false, nil
	}

	kept := r.conversations[:0]
	for _, c := range r.conversations {
		if !drop[c.ID] {
			kept = append(kept, c)
		}
	}
	r.conversations = kept
	return true, nil
}

func mergeConversation(into, from *entity.Conversation) {
	into.IsImportant = into.IsImportant || from.IsImportant
	into.IsMuted = into.IsMuted || from.IsMuted
	into.Tags = addTags(into.Tags, from.Tags)
	if from.CreatedAt.Before(into.CreatedAt) {
		into.CreatedAt = from.CreatedAt
	}
}

// recompute rebuilds the preview and both unread counters from the
// conversation's messages and reports which of the two drifted.
func (r *ConversationRegistry) recompute(ctx context.Context, c *entity.Conversation) (countersChanged, previewChanged bool, err error) {
	msgs, err := r.messages.List(ctx, c.ID)
	if err != nil {
		return false, false, err
	}

	var counters entity.UnreadCounters
	var last *entity.LastMessage
	for _, m := range msgs {
		if m.Status != entity.StatusRead {
			reader := m.SenderType.Opposite()
			counters.Set(reader, counters.For(reader)+1)
		}
		if last.IsOlderThan(m) {
			last = entity.NewLastMessage(m)
		}
	}

	countersChanged = counters != c.Unread
	previewChanged = !sameLastMessage(last, c.LastMessage)
	if countersChanged || previewChanged {
		logger.Debug("ConversationRegistry: Corrected derived fields of conversation %s", c.ID)
	}
	c.Unread = counters
	c.LastMessage = last
	return countersChanged, previewChanged, nil
}

func sameLastMessage(a, b *entity.LastMessage) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.MessageID == b.MessageID && a.Body == b.Body && a.SenderID == b.SenderID && a.Timestamp.Equal(b.Timestamp)
}

// Delete removes the conversation and its messages. It returns nil when the
// conversation does not exist.
func (r *ConversationRegistry) Delete(ctx context.Context, conversationID string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	i := r.indexOf(conversationID)
	if i < 0 {
		return nil, nil
	}

	removed := r.conversations[i]
	r.conversations = append(r.conversations[:i], r.conversations[i+1:]...)
	if err := r.persist(ctx); err != nil {
		return nil, err
	}

	if _, err := r.messages.DeleteConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return removed.Clone(), nil
}

// SetFlag toggles flag and returns its new value. found is false for
// unknown conversations.
func (r *ConversationRegistry) SetFlag(ctx context.Context, conversationID string, flag ConversationFlag) (value bool, found bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return false, false, err
	}

	i := r.indexOf(conversationID)
	if i < 0 {
		return false, false, nil
	}

	c := r.conversations[i]
	switch flag {
	case FlagImportant:
		c.IsImportant = !c.IsImportant
		value = c.IsImportant
		r.resort()
	case FlagMuted:
		c.IsMuted = !c.IsMuted
		value = c.IsMuted
	default:
		return false, false, nil
	}

	if err := r.persist(ctx); err != nil {
		return false, false, err
	}
	return value, true, nil
}

// SetTags adds or removes tags and returns the resulting tag set.
func (r *ConversationRegistry) SetTags(ctx context.Context, conversationID string, tags []string, op TagOp) ([]string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, false, err
	}

	i := r.indexOf(conversationID)
	if i < 0 {
		return nil, false, nil
	}

	c := r.conversations[i]
	switch op {
	case TagAdd:
		c.Tags = addTags(c.Tags, tags)
	case TagRemove:
		c.Tags = removeTags(c.Tags, tags)
	default:
		return nil, false, nil
	}

	if err := r.persist(ctx); err != nil {
		return nil, false, err
	}
	return append([]string{}, c.Tags...), true, nil
}

func addTags(current, tags []string) []string {
	out := append([]string{}, current...)
	for _, t := range tags {
		if t != "" && !containsString(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func removeTags(current, tags []string) []string {
	out := make([]string, 0, len(current))
	for _, t := range current {
		if !containsString(tags, t) {
			out = append(out, t)
		}
	}
	return out
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
