package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"installerhub/internal/domain/entity"
	"installerhub/internal/domain/repository"
	"installerhub/internal/domain/service"
	"installerhub/internal/infrastructure/eventhub"
	"installerhub/internal/infrastructure/metrics"
	"installerhub/pkg/logger"
)

type PaymentRequestInput struct {
	PaymentID     string
	InstallerID   string
	InstallerName string
	Amount        float64
	Currency      string
	Reference     string
}

type PaymentCommentInput struct {
	PaymentID  string
	AuthorID   string
	AuthorName string
	AuthorType entity.SenderType
	Comment    string
}

type SerialSubmissionInput struct {
	SubmissionID  string
	InstallerID   string
	InstallerName string
	Serials       []string
}

type NewInstallerInput struct {
	InstallerID string
	Name        string
	Company     string
	Email       string
}

// NotificationBridge turns installer activity into admin-facing
// notifications. Admin-authored activity never notifies admins.
type NotificationBridge struct {
	mu            sync.Mutex
	coll          stateCollection[[]entity.Notification]
	loaded        bool
	notifications []entity.Notification
	hub           *eventhub.Hub
}

func NewNotificationBridge(state repository.StateStore, hub *eventhub.Hub) *NotificationBridge {
	return &NotificationBridge{
		coll: stateCollection[[]entity.Notification]{store: state, key: repository.AdminNotificationsKey},
		hub:  hub,
	}
}

func (b *NotificationBridge) ensureLoaded(ctx context.Context) error {
	if b.loaded {
		return nil
	}
	notifications, err := b.coll.load(ctx)
	if err != nil {
		logger.Error("NotificationBridge Error: Failed to load notifications: %v", err)
		return err
	}
	b.notifications = notifications
	b.loaded = true
	return nil
}

func (b *NotificationBridge) persist(ctx context.Context) error {
	if err := b.coll.save(ctx, b.notifications); err != nil {
		logger.Error("NotificationBridge Error: Failed to persist notifications: %v", err)
		b.loaded = false
		b.notifications = nil
		return err
	}
	return nil
}

// messageNotification builds the admin notification for a stored chat
// message, or returns nil when the message must not notify anyone.
func messageNotification(msg entity.Message) *entity.Notification {
	if msg.SenderType != entity.SenderInstaller || service.IsStaffName(msg.SenderName) {
		return nil
	}
	return &entity.Notification{
		Type:    entity.NotificationNewMessage,
		Title:   service.NewMessageTitle(msg.SenderName),
		Message: service.MessagePreview(msg.Body),
		Data: map[string]interface{}{
			"conversation_id": msg.ConversationID,
			"message_id":      msg.ID,
			"sender_id":       msg.SenderID,
		},
	}
}

// add persists n and publishes notification_added once the bridge lock is
// released.
func (b *NotificationBridge) add(ctx context.Context, n entity.Notification) (*entity.Notification, error) {
	b.mu.Lock()
	if err := b.ensureLoaded(ctx); err != nil {
		b.mu.Unlock()
		return nil, err
	}

	n.ID = uuid.New().String()
	n.RecipientType = entity.SenderAdmin
	n.Read = false
	n.CreatedAt = timeNow()

	b.notifications = append(b.notifications, n)
	if err := b.persist(ctx); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	b.mu.Unlock()

	metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	b.hub.Emit(ctx, eventhub.NotificationAddedEvent{Notification: n})
	return &n, nil
}

// OnMessageSent records a new_message notification for installer-authored
// messages. It returns nil when the message does not qualify.
func (b *NotificationBridge) OnMessageSent(ctx context.Context, msg entity.Message) (*entity.Notification, error) {
	n := messageNotification(msg)
	if n == nil {
		return nil, nil
	}
	return b.add(ctx, *n)
}

func (b *NotificationBridge) OnPaymentRequest(ctx context.Context, input PaymentRequestInput) (*entity.Notification, error) {
	return b.add(ctx, entity.Notification{
		Type:    entity.NotificationPaymentRequest,
		Title:   service.PaymentRequestTitle(input.InstallerName),
		Message: service.PaymentRequestMessage(input.Amount, input.Currency, input.Reference),
		Data: map[string]interface{}{
			"payment_id":   input.PaymentID,
			"installer_id": input.InstallerID,
			"amount":       input.Amount,
			"currency":     strings.ToUpper(input.Currency),
		},
	})
}

// OnPaymentComment only notifies for installer comments, like chat messages.
func (b *NotificationBridge) OnPaymentComment(ctx context.Context, input PaymentCommentInput) (*entity.Notification, error) {
	if input.AuthorType != entity.SenderInstaller || service.IsStaffName(input.AuthorName) {
		return nil, nil
	}
	return b.add(ctx, entity.Notification{
		Type:    entity.NotificationPaymentComment,
		Title:   service.PaymentCommentTitle(input.AuthorName),
		Message: service.MessagePreview(input.Comment),
		Data: map[string]interface{}{
			"payment_id": input.PaymentID,
			"author_id":  input.AuthorID,
		},
	})
}

func (b *NotificationBridge) OnSerialSubmission(ctx context.Context, input SerialSubmissionInput) (*entity.Notification, error) {
	return b.add(ctx, entity.Notification{
		Type:    entity.NotificationSerialSubmission,
		Title:   service.SerialSubmissionTitle(input.InstallerName),
		Message: service.SerialSubmissionMessage(input.Serials),
		Data: map[string]interface{}{
			"submission_id": input.SubmissionID,
			"installer_id":  input.InstallerID,
			"serials":       append([]string{}, input.Serials...),
		},
	})
}

func (b *NotificationBridge) OnNewInstaller(ctx context.Context, input NewInstallerInput) (*entity.Notification, error) {
	return b.add(ctx, entity.Notification{
		Type:    entity.NotificationNewInstaller,
		Title:   service.NewInstallerTitle(input.Name),
		Message: service.NewInstallerMessage(input.Name, input.Company),
		Data: map[string]interface{}{
			"installer_id": input.InstallerID,
			"email":        input.Email,
		},
	})
}

// MarkAsRead marks one notification read. found is false for unknown ids;
// marking an already read notification succeeds without publishing again.
func (b *NotificationBridge) MarkAsRead(ctx context.Context, id string) (bool, error) {
	b.mu.Lock()
	if err := b.ensureLoaded(ctx); err != nil {
		b.mu.Unlock()
		return false, err
	}

	found, changed := false, false
	for i := range b.notifications {
		if b.notifications[i].ID != id {
			continue
		}
		found = true
		if !b.notifications[i].Read {
			b.notifications[i].Read = true
			changed = true
		}
		break
	}

	if changed {
		if err := b.persist(ctx); err != nil {
			b.mu.Unlock()
			return false, err
		}
	}
	b.mu.Unlock()

	if changed {
		b.hub.Emit(ctx, eventhub.NotificationReadEvent{NotificationID: id})
	}
	return found, nil
}

// MarkAllAsRead marks every notification read and returns how many changed.
func (b *NotificationBridge) MarkAllAsRead(ctx context.Context) (int, error) {
	b.mu.Lock()
	if err := b.ensureLoaded(ctx); err != nil {
		b.mu.Unlock()
		return 0, err
	}

	count := 0
	for i := range b.notifications {
		if !b.notifications[i].Read {
			b.notifications[i].Read = true
			count++
		}
	}

	if count > 0 {
		if err := b.persist(ctx); err != nil {
			b.mu.Unlock()
			return 0, err
		}
	}
	b.mu.Unlock()

	if count > 0 {
		b.hub.Emit(ctx, eventhub.AllNotificationsReadEvent{Count: count})
	}
	return count, nil
}

func (b *NotificationBridge) UnreadCount(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureLoaded(ctx); err != nil {
		return 0, err
	}

	count := 0
	for _, n := range b.notifications {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// List returns notifications newest first.
func (b *NotificationBridge) List(ctx context.Context, onlyUnread bool) ([]entity.Notification, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	out := make([]entity.Notification, 0, len(b.notifications))
	for i := len(b.notifications) - 1; i >= 0; i-- {
		n := b.notifications[i]
		if onlyUnread && n.Read {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
