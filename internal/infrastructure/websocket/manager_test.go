package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"installerhub/internal/domain/entity"
	"installerhub/internal/infrastructure/eventhub"
)

type staticOwners map[string]string

func (o staticOwners) InstallerOf(ctx context.Context, conversationID string) (string, bool, error) {
	id, ok := o[conversationID]
	return id, ok, nil
}

func connect(m *Manager, viewer entity.Participant) *Client {
	client := NewClient(viewer, nil)
	m.mutex.Lock()
	m.clients[client] = struct{}{}
	m.mutex.Unlock()
	return client
}

func frameTypes(c *Client) []string {
	var types []string
	for {
		select {
		case payload := <-c.Send:
			var f struct {
				Type string `json:"type"`
			}
			json.Unmarshal(payload, &f)
			types = append(types, f.Type)
		default:
			return types
		}
	}
}

func TestRelayRoutesByConversationOwner(t *testing.T) {
	hub := eventhub.New()
	m := NewManager(staticOwners{"c1": "i1", "c2": "i2"})
	m.Attach(hub)
	defer m.Detach()

	adminClient := connect(m, entity.Participant{ID: entity.AdminPoolID, Type: entity.SenderAdmin})
	owner := connect(m, entity.Participant{ID: "i1", Type: entity.SenderInstaller})
	stranger := connect(m, entity.Participant{ID: "i2", Type: entity.SenderInstaller})

	ctx := context.Background()
	hub.Emit(ctx, eventhub.MessageSentEvent{Message: entity.Message{ID: "m1", ConversationID: "c1"}})
	hub.Emit(ctx, eventhub.MessagesReadEvent{ConversationID: "c1", Viewer: entity.SenderAdmin, MessageIDs: []string{"m1"}})
	hub.Emit(ctx, eventhub.NotificationAddedEvent{Notification: entity.Notification{ID: "n1"}})

	assert.Equal(t, []string{"message_sent", "messages_read", "notification_added"}, frameTypes(adminClient))
	assert.Equal(t, []string{"message_sent", "messages_read"}, frameTypes(owner))
	assert.Empty(t, frameTypes(stranger))
}

func TestRelayConversationLifecycleEvents(t *testing.T) {
	hub := eventhub.New()
	m := NewManager(staticOwners{})
	m.Attach(hub)
	defer m.Detach()

	owner := connect(m, entity.Participant{ID: "i1", Type: entity.SenderInstaller})
	other := connect(m, entity.Participant{ID: "i2", Type: entity.SenderInstaller})

	ctx := context.Background()
	hub.Emit(ctx, eventhub.ConversationUpdatedEvent{Conversation: entity.Conversation{
		ID:           "c1",
		Participants: []entity.Participant{{ID: "i1", Type: entity.SenderInstaller}},
	}})
	hub.Emit(ctx, eventhub.ConversationDeletedEvent{ConversationID: "c1", InstallerID: "i1"})

	assert.Equal(t, []string{"conversation_updated", "conversation_deleted"}, frameTypes(owner))
	assert.Empty(t, frameTypes(other))
}

func TestDetachStopsRelay(t *testing.T) {
	hub := eventhub.New()
	m := NewManager(nil)
	m.Attach(hub)
	adminClient := connect(m, entity.Participant{ID: entity.AdminPoolID, Type: entity.SenderAdmin})

	m.Detach()
	hub.Emit(context.Background(), eventhub.NotificationReadEvent{NotificationID: "n1"})
	assert.Empty(t, frameTypes(adminClient))
}

func TestSlowClientIsDropped(t *testing.T) {
	m := NewManager(nil)
	slow := &Client{Viewer: entity.Participant{ID: entity.AdminPoolID, Type: entity.SenderAdmin}, Send: make(chan []byte)}
	m.mutex.Lock()
	m.clients[slow] = struct{}{}
	m.mutex.Unlock()

	m.broadcast([]byte(`{}`), func(*Client) bool { return true })

	assert.Zero(t, m.ConnectedCount())
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestStartClosesClientsOnShutdown(t *testing.T) {
	m := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)

	client := NewClient(entity.Participant{ID: "i1", Type: entity.SenderInstaller}, nil)
	require.True(t, m.Add(client))
	require.Eventually(t, func() bool { return m.ConnectedCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-m.done
	require.Eventually(t, func() bool { return m.ConnectedCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestAddAfterShutdownDoesNotBlock(t *testing.T) {
	m := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()
	<-m.done

	added := make(chan bool, 1)
	go func() {
		added <- m.Add(NewClient(entity.Participant{ID: "late", Type: entity.SenderAdmin}, nil))
	}()

	select {
	case ok := <-added:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Add blocked after the manager stopped")
	}
}
