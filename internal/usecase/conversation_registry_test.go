package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"installerhub/internal/domain/entity"
	"installerhub/internal/domain/repository"
)

func newRegistry(state repository.StateStore) (*ConversationRegistry, *MessageStore) {
	messages := NewMessageStore(state)
	return NewConversationRegistry(state, messages), messages
}

func ids(conversations []*entity.Conversation) []string {
	out := make([]string, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, c.ID)
	}
	return out
}

func TestFindOrCreateReusesInstallerConversation(t *testing.T) {
	useClock(t)
	ctx := context.Background()
	registry, _ := newRegistry(newFakeStateStore())

	first, created, err := registry.FindOrCreate(ctx, installer("i1", "Ann"), admin("Support"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, first.LastMessage)
	assert.Zero(t, first.Unread)

	second, created, err := registry.FindOrCreate(ctx, installer("i1", "Ann"), admin("Support"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	other, _, err := registry.FindOrCreate(ctx, installer("i2", "Ben"), admin("Support"))
	require.NoError(t, err)

	list, err := registry.ListFor(ctx, entity.SenderAdmin, entity.AdminPoolID)
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID, first.ID}, ids(list), "new conversations go to the head")
}

func TestRecordMessageMovesConversationUpButBelowImportant(t *testing.T) {
	useClock(t)
	ctx := context.Background()
	registry, messages := newRegistry(newFakeStateStore())

	a, _, _ := registry.FindOrCreate(ctx, installer("a", "A"), admin("Support"))
	b, _, _ := registry.FindOrCreate(ctx, installer("b", "B"), admin("Support"))
	c, _, _ := registry.FindOrCreate(ctx, installer("c", "C"), admin("Support"))

	_, found, err := registry.SetFlag(ctx, a.ID, FlagImportant)
	require.NoError(t, err)
	require.True(t, found)

	msg, _, err := messages.Append(ctx, b.ID, entity.Message{SenderID: "b", SenderType: entity.SenderInstaller, Body: "ping"})
	require.NoError(t, err)
	_, err = registry.RecordMessage(ctx, b.ID, msg)
	require.NoError(t, err)

	list, err := registry.ListFor(ctx, entity.SenderAdmin, entity.AdminPoolID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, ids(list))
	assert.Equal(t, "ping", list[1].LastMessage.Body)
	assert.Equal(t, 1, list[1].UnreadCount)
}

func TestMarkReadDoesNotReorder(t *testing.T) {
	useClock(t)
	ctx := context.Background()
	registry, messages := newRegistry(newFakeStateStore())

	a, _, _ := registry.FindOrCreate(ctx, installer("a", "A"), admin("Support"))
	b, _, _ := registry.FindOrCreate(ctx, installer("b", "B"), admin("Support"))

	for _, id := range []string{a.ID, b.ID} {
		msg, _, err := messages.Append(ctx, id, entity.Message{SenderType: entity.SenderInstaller, Body: "x"})
		require.NoError(t, err)
		_, err = registry.RecordMessage(ctx, id, msg)
		require.NoError(t, err)
	}

	before, err := registry.ListFor(ctx, entity.SenderAdmin, entity.AdminPoolID)
	require.NoError(t, err)

	_, err = messages.SetStatus(ctx, a.ID, func(entity.Message) bool { return true }, entity.StatusRead)
	require.NoError(t, err)
	found, err := registry.MarkRead(ctx, a.ID, entity.SenderAdmin)
	require.NoError(t, err)
	require.True(t, found)

	after, err := registry.ListFor(ctx, entity.SenderAdmin, entity.AdminPoolID)
	require.NoError(t, err)
	assert.Equal(t, ids(before), ids(after))
	assert.Equal(t, 0, after[1].UnreadCount)
}

func TestListForInstallerOnlySeesOwnConversation(t *testing.T) {
	ctx := context.Background()
	registry, _ := newRegistry(newFakeStateStore())

	mine, _, _ := registry.FindOrCreate(ctx, installer("i1", "Ann"), admin("Support"))
	_, _, _ = registry.FindOrCreate(ctx, installer("i2", "Ben"), admin("Support"))

	list, err := registry.ListFor(ctx, entity.SenderInstaller, "i1")
	require.NoError(t, err)
	assert.Equal(t, []string{mine.ID}, ids(list))
}

func TestListForMergesDuplicateConversations(t *testing.T) {
	ctx := context.Background()
	state := newFakeStateStore()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	// Two records for the same installer, as left behind by an older writer.
	convs := []*entity.Conversation{
		{ID: "dup", Participants: []entity.Participant{installer("i1", "Ann"), admin("Support")}, Tags: []string{"late"}, CreatedAt: base},
		{ID: "keep", Participants: []entity.Participant{installer("i1", "Ann"), admin("Support")}, Tags: []string{"vip"}, CreatedAt: base.Add(time.Minute)},
	}
	msgs := map[string][]entity.Message{
		"keep": {{ID: "m2", ConversationID: "keep", SenderType: entity.SenderInstaller, Body: "second", Timestamp: base.Add(2 * time.Minute)}},
		"dup":  {{ID: "m1", ConversationID: "dup", SenderType: entity.SenderInstaller, Body: "first", Timestamp: base.Add(time.Minute)}},
	}
	seed(t, state, repository.ConversationsKey, convs)
	seed(t, state, repository.MessagesByConversationKey, msgs)

	registry, messages := newRegistry(state)
	list, err := registry.ListFor(ctx, entity.SenderAdmin, entity.AdminPoolID)
	require.NoError(t, err)

	require.Len(t, list, 1)
	kept := list[0]
	assert.Equal(t, "keep", kept.ID)
	assert.Equal(t, 2, kept.UnreadCount)
	assert.Equal(t, "second", kept.LastMessage.Body)
	assert.ElementsMatch(t, []string{"vip", "late"}, kept.Tags)
	assert.Equal(t, base, kept.CreatedAt)

	merged, err := messages.List(ctx, "keep")
	require.NoError(t, err)
	assert.Len(t, merged, 2)
}

func TestListForResortsAfterMerge(t *testing.T) {
	ctx := context.Background()
	state := newFakeStateStore()
	at := func(minute int) time.Time { return time.Date(2024, 5, 1, 9, minute, 0, 0, time.UTC) }
	message := func(id, conv string, minute int) entity.Message {
		return entity.Message{ID: id, ConversationID: conv, SenderID: "x", SenderType: entity.SenderInstaller, Body: id, Timestamp: at(minute)}
	}
	preview := func(m entity.Message) *entity.LastMessage { return entity.NewLastMessage(m) }

	m1, m5, m10 := message("m1", "keep", 1), message("m5", "other", 5), message("m10", "dup", 10)
	seed(t, state, repository.ConversationsKey, []*entity.Conversation{
		{ID: "other", IsImportant: true, Participants: []entity.Participant{installer("i2", "Ben"), admin("Support")}, LastMessage: preview(m5), Unread: entity.UnreadCounters{Admin: 1}, CreatedAt: at(0)},
		{ID: "keep", IsImportant: true, Participants: []entity.Participant{installer("i1", "Ann"), admin("Support")}, LastMessage: preview(m1), Unread: entity.UnreadCounters{Admin: 1}, CreatedAt: at(0)},
		{ID: "dup", Participants: []entity.Participant{installer("i1", "Ann"), admin("Support")}, LastMessage: preview(m10), Unread: entity.UnreadCounters{Admin: 1}, CreatedAt: at(0)},
	})
	seed(t, state, repository.MessagesByConversationKey, map[string][]entity.Message{
		"keep":  {m1},
		"other": {m5},
		"dup":   {m10},
	})

	registry, _ := newRegistry(state)
	list, err := registry.ListFor(ctx, entity.SenderAdmin, entity.AdminPoolID)
	require.NoError(t, err)

	assert.Equal(t, []string{"keep", "other"}, ids(list))
	assert.Equal(t, at(10), list[0].ActivityAt())
	assert.Equal(t, 2, list[0].UnreadCount)

	again, err := registry.ListFor(ctx, entity.SenderAdmin, entity.AdminPoolID)
	require.NoError(t, err)
	assert.Equal(t, ids(list), ids(again))
}

func TestListForCounterRepairKeepsOrder(t *testing.T) {
	ctx := context.Background()
	state := newFakeStateStore()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	older := entity.Message{ID: "m1", SenderType: entity.SenderInstaller, Body: "old", Timestamp: base}
	newer := entity.Message{ID: "m2", SenderType: entity.SenderInstaller, Body: "new", Timestamp: base.Add(time.Minute)}
	// Stored order puts the older conversation first; only counters are stale.
	seed(t, state, repository.ConversationsKey, []*entity.Conversation{
		{ID: "a", Participants: []entity.Participant{installer("i1", "Ann"), admin("Support")}, LastMessage: entity.NewLastMessage(older), Unread: entity.UnreadCounters{Admin: 9}, CreatedAt: base},
		{ID: "b", Participants: []entity.Participant{installer("i2", "Ben"), admin("Support")}, LastMessage: entity.NewLastMessage(newer), Unread: entity.UnreadCounters{Admin: 9}, CreatedAt: base},
	})
	seed(t, state, repository.MessagesByConversationKey, map[string][]entity.Message{
		"a": {older},
		"b": {newer},
	})

	registry, _ := newRegistry(state)
	list, err := registry.ListFor(ctx, entity.SenderAdmin, entity.AdminPoolID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(list))
	assert.Equal(t, 1, list[0].UnreadCount)
}

func TestListForRepairsDriftedCounters(t *testing.T) {
	ctx := context.Background()
	state := newFakeStateStore()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	seed(t, state, repository.ConversationsKey, []*entity.Conversation{
		{ID: "c1", Participants: []entity.Participant{installer("i1", "Ann"), admin("Support")}, Unread: entity.UnreadCounters{Admin: 7, Installer: 3}, CreatedAt: base},
	})
	seed(t, state, repository.MessagesByConversationKey, map[string][]entity.Message{
		"c1": {
			{ID: "m1", SenderType: entity.SenderInstaller, Status: entity.StatusRead, Timestamp: base},
			{ID: "m2", SenderType: entity.SenderInstaller, Status: entity.StatusDelivered, Timestamp: base.Add(time.Second)},
			{ID: "m3", SenderType: entity.SenderAdmin, Status: entity.StatusDelivered, Timestamp: base.Add(2 * time.Second)},
		},
	})

	registry, _ := newRegistry(state)

	adminView, err := registry.ListFor(ctx, entity.SenderAdmin, entity.AdminPoolID)
	require.NoError(t, err)
	assert.Equal(t, 1, adminView[0].UnreadCount)

	installerView, err := registry.ListFor(ctx, entity.SenderInstaller, "i1")
	require.NoError(t, err)
	assert.Equal(t, 1, installerView[0].UnreadCount)
	assert.Equal(t, "m3", installerView[0].LastMessage.MessageID)
}

func TestDeleteCascadesToMessages(t *testing.T) {
	ctx := context.Background()
	registry, messages := newRegistry(newFakeStateStore())

	conv, _, _ := registry.FindOrCreate(ctx, installer("i1", "Ann"), admin("Support"))
	_, _, err := messages.Append(ctx, conv.ID, entity.Message{Body: "bye"})
	require.NoError(t, err)

	removed, err := registry.Delete(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, removed)

	list, err := messages.List(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	again, err := registry.Delete(ctx, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestSetFlagAndTagsOnUnknownConversation(t *testing.T) {
	ctx := context.Background()
	registry, _ := newRegistry(newFakeStateStore())

	_, found, err := registry.SetFlag(ctx, "missing", FlagMuted)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = registry.SetTags(ctx, "missing", []string{"x"}, TagAdd)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetTags(t *testing.T) {
	ctx := context.Background()
	registry, _ := newRegistry(newFakeStateStore())
	conv, _, _ := registry.FindOrCreate(ctx, installer("i1", "Ann"), admin("Support"))

	tags, found, err := registry.SetTags(ctx, conv.ID, []string{"vip", "solar", "vip", ""}, TagAdd)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"vip", "solar"}, tags)

	tags, _, err = registry.SetTags(ctx, conv.ID, []string{"vip"}, TagRemove)
	require.NoError(t, err)
	assert.Equal(t, []string{"solar"}, tags)
}

func seed(t *testing.T, state repository.StateStore, key string, value interface{}) {
	t.Helper()
	raw, err := json.Marshal(value)
	require.NoError(t, err)
	require.NoError(t, state.Save(context.Background(), key, raw))
}
