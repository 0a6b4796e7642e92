package eventhub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"installerhub/internal/domain/entity"
)

func TestEmitRunsHandlersInSubscriptionOrder(t *testing.T) {
	hub := New()
	var calls []int

	for i := 1; i <= 3; i++ {
		i := i
		hub.On(MessageSent, func(ctx context.Context, event Event) error {
			calls = append(calls, i)
			return nil
		})
	}

	hub.Emit(context.Background(), MessageSentEvent{Message: entity.Message{ID: "m1"}})
	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestFailingHandlersDoNotStopDelivery(t *testing.T) {
	hub := New()
	delivered := 0

	hub.On(MessageSent, func(ctx context.Context, event Event) error {
		return errors.New("boom")
	})
	hub.On(MessageSent, func(ctx context.Context, event Event) error {
		panic("listener blew up")
	})
	hub.On(MessageSent, func(ctx context.Context, event Event) error {
		delivered++
		return nil
	})

	assert.NotPanics(t, func() {
		hub.Emit(context.Background(), MessageSentEvent{})
	})
	assert.Equal(t, 1, delivered)
}

func TestOffRemovesOnlyThatHandler(t *testing.T) {
	hub := New()
	var first, second int

	sub := hub.On(NotificationAdded, func(ctx context.Context, event Event) error {
		first++
		return nil
	})
	hub.On(NotificationAdded, func(ctx context.Context, event Event) error {
		second++
		return nil
	})

	hub.Emit(context.Background(), NotificationAddedEvent{})
	assert.True(t, hub.Off(sub))
	assert.False(t, hub.Off(sub))
	hub.Emit(context.Background(), NotificationAddedEvent{})

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestEmitOnlyReachesMatchingName(t *testing.T) {
	hub := New()
	called := false
	hub.On(MessagesRead, func(ctx context.Context, event Event) error {
		called = true
		return nil
	})

	hub.Emit(context.Background(), ConversationDeletedEvent{ConversationID: "c1"})
	assert.False(t, called)
}

func TestSubscribeIsTyped(t *testing.T) {
	hub := New()
	var got ConversationDeletedEvent

	Subscribe(hub, func(ctx context.Context, event ConversationDeletedEvent) error {
		got = event
		return nil
	})

	hub.Emit(context.Background(), ConversationDeletedEvent{ConversationID: "c1", InstallerID: "i1"})
	require.Equal(t, "c1", got.ConversationID)
	assert.Equal(t, "i1", got.InstallerID)
}

func TestHandlerMayUnsubscribeDuringEmit(t *testing.T) {
	hub := New()
	count := 0

	var sub Subscription
	sub = hub.On(MessageSent, func(ctx context.Context, event Event) error {
		count++
		hub.Off(sub)
		return nil
	})

	hub.Emit(context.Background(), MessageSentEvent{})
	hub.Emit(context.Background(), MessageSentEvent{})
	assert.Equal(t, 1, count)
}
