package entity

import (
	"fmt"
	"strings"
	"time"
)

// MessageStatus only ever moves forward: sent < delivered < read.
type MessageStatus int

const (
	StatusSent MessageStatus = iota
	StatusDelivered
	StatusRead
)

var statusNames = [...]string{"sent", "delivered", "read"}

func (s MessageStatus) String() string {
	if s < StatusSent || s > StatusRead {
		return fmt.Sprintf("MessageStatus(%d)", int(s))
	}
	return statusNames[s]
}

// Advance returns the status after a transition to next and whether it moved.
func (s MessageStatus) Advance(next MessageStatus) (MessageStatus, bool) {
	if next <= s {
		return s, false
	}
	return next, true
}

func (s MessageStatus) MarshalText() ([]byte, error) {
	if s < StatusSent || s > StatusRead {
		return nil, fmt.Errorf("invalid message status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *MessageStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseMessageStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseMessageStatus(v string) (MessageStatus, error) {
	for i, name := range statusNames {
		if strings.EqualFold(v, name) {
			return MessageStatus(i), nil
		}
	}
	return StatusSent, fmt.Errorf("unknown message status %q", v)
}

type MessageKind string

const (
	KindText       MessageKind = "text"
	KindAttachment MessageKind = "attachment"
	KindImage      MessageKind = "image"
	KindDocument   MessageKind = "document"
)

type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Message is immutable once stored except for Status.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	// ClientMessageID is the sender's retry token. It is never used as ID.
	ClientMessageID string        `json:"client_message_id,omitempty"`
	SenderID        string        `json:"sender_id"`
	SenderName      string        `json:"sender_name"`
	SenderType      SenderType    `json:"sender_type"`
	Body            string        `json:"body"`
	Timestamp       time.Time     `json:"timestamp"`
	Kind            MessageKind   `json:"kind"`
	Attachments     []Attachment  `json:"attachments,omitempty"`
	Status          MessageStatus `json:"status"`
}

// Before reports whether m sorts ahead of other in chronological order,
// using the id as a tiebreak for identical timestamps.
func (m Message) Before(other Message) bool {
	if !m.Timestamp.Equal(other.Timestamp) {
		return m.Timestamp.Before(other.Timestamp)
	}
	return m.ID < other.ID
}
