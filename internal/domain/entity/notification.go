package entity

import "time"

type NotificationType string

const (
	NotificationNewMessage       NotificationType = "new_message"
	NotificationPaymentRequest   NotificationType = "payment_request"
	NotificationPaymentComment   NotificationType = "payment_comment"
	NotificationSerialSubmission NotificationType = "serial_submission"
	NotificationNewInstaller     NotificationType = "new_installer"
)

type Notification struct {
	ID            string                 `json:"id"`
	RecipientType SenderType             `json:"recipient_type"`
	Type          NotificationType       `json:"type"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	Data          map[string]interface{} `json:"data,omitempty"`
	Read          bool                   `json:"read"`
	CreatedAt     time.Time              `json:"created_at"`
}
