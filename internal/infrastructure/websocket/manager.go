package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"installerhub/internal/domain/entity"
	"installerhub/internal/infrastructure/eventhub"
	"installerhub/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Client represents one WebSocket connection of an authenticated viewer.
type Client struct {
	Viewer entity.Participant
	Conn   *websocket.Conn
	Send   chan []byte
}

func NewClient(viewer entity.Participant, conn *websocket.Conn) *Client {
	return &Client{
		Viewer: viewer,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
	}
}

// Frame is the JSON envelope pushed to clients.
type Frame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// ConversationOwners resolves the installer on the other end of a conversation.
type ConversationOwners interface {
	InstallerOf(ctx context.Context, conversationID string) (string, bool, error)
}

// Manager tracks live connections and relays event hub traffic to them.
// Admin clients see everything; installers only see events about their own
// conversation.
type Manager struct {
	clients    map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
	done       chan struct{}

	owners ConversationOwners
	subs   []eventhub.Subscription
	hub    *eventhub.Hub
}

func NewManager(owners ConversationOwners) *Manager {
	return &Manager{
		clients:    make(map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		owners:     owners,
	}
}

// Start runs the registration loop until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client] = struct{}{}
				m.mutex.Unlock()
				logger.Info("WebSocket: %s %s connected", client.Viewer.Type, client.Viewer.ID)

			case client := <-m.Unregister:
				m.remove(client)
				logger.Info("WebSocket: %s %s disconnected", client.Viewer.Type, client.Viewer.ID)

			case <-ctx.Done():
				close(m.done)
				m.mutex.Lock()
				for client := range m.clients {
					delete(m.clients, client)
					close(client.Send)
				}
				m.mutex.Unlock()
				return
			}
		}
	}()
}

// Add hands client to the registration loop. It reports false once the
// loop has stopped.
func (m *Manager) Add(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.clients[client]; ok {
		delete(m.clients, client)
		close(client.Send)
	}
}

// Attach subscribes the relay to every event the hub publishes.
func (m *Manager) Attach(hub *eventhub.Hub) {
	m.hub = hub
	for _, name := range []eventhub.Name{
		eventhub.MessageSent,
		eventhub.MessageReceived,
		eventhub.MessagesRead,
		eventhub.ConversationDeleted,
		eventhub.ConversationUpdated,
		eventhub.NotificationAdded,
		eventhub.NotificationRead,
		eventhub.AllNotificationsRead,
	} {
		m.subs = append(m.subs, hub.On(name, m.relay))
	}
}

// Detach removes the relay's hub subscriptions.
func (m *Manager) Detach() {
	if m.hub == nil {
		return
	}
	for _, sub := range m.subs {
		m.hub.Off(sub)
	}
	m.subs = nil
}

func (m *Manager) relay(ctx context.Context, event eventhub.Event) error {
	installerID, err := m.audience(ctx, event)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(Frame{
		Type:      string(event.EventName()),
		Data:      event,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	m.broadcast(payload, func(c *Client) bool {
		if c.Viewer.Type == entity.SenderAdmin {
			return true
		}
		return installerID != "" && c.Viewer.ID == installerID
	})
	return nil
}

// audience returns the installer allowed to see event, or "" when only
// admins may see it.
func (m *Manager) audience(ctx context.Context, event eventhub.Event) (string, error) {
	var conversationID string

	switch e := event.(type) {
	case eventhub.MessageSentEvent:
		conversationID = e.Message.ConversationID
	case eventhub.MessageReceivedEvent:
		conversationID = e.Message.ConversationID
	case eventhub.MessagesReadEvent:
		conversationID = e.ConversationID
	case eventhub.ConversationDeletedEvent:
		return e.InstallerID, nil
	case eventhub.ConversationUpdatedEvent:
		return e.Conversation.Installer().ID, nil
	default:
		return "", nil
	}

	if m.owners == nil {
		return "", nil
	}
	installerID, _, err := m.owners.InstallerOf(ctx, conversationID)
	return installerID, err
}

func (m *Manager) broadcast(payload []byte, allow func(*Client) bool) {
	var slow []*Client

	m.mutex.RLock()
	for client := range m.clients {
		if !allow(client) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	m.mutex.RUnlock()

	for _, client := range slow {
		logger.Warn("WebSocket: Dropping slow client %s %s", client.Viewer.Type, client.Viewer.ID)
		m.remove(client)
	}
}

// sendTo queues payload for a single registered client without blocking.
func (m *Manager) sendTo(client *Client, payload []byte) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if _, ok := m.clients[client]; !ok {
		return false
	}
	select {
	case client.Send <- payload:
		return true
	default:
		return false
	}
}

// ConnectedCount reports how many connections are live.
func (m *Manager) ConnectedCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// ReadPump reads inbound frames until the connection closes.
func (c *Client) ReadPump(m *Manager, dispatcher *Dispatcher) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-m.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket Error: Read from %s failed: %v", c.Viewer.ID, err)
			}
			break
		}

		if dispatcher == nil {
			continue
		}
		if reply := dispatcher.Handle(context.Background(), c, message); reply != nil {
			if !m.sendTo(c, reply) {
				logger.Warn("WebSocket: Reply to %s dropped", c.Viewer.ID)
			}
		}
	}
}

// WritePump drains Send onto the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error("WebSocket Error: Write to %s failed: %v", c.Viewer.ID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
