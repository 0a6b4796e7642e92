package entity

import "time"

type LastMessage struct {
	MessageID string    `json:"message_id"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	SenderID  string    `json:"sender_id"`
}

// UnreadCounters caches, per viewing role, how many messages from the other
// role are not read yet.
type UnreadCounters struct {
	Admin     int `json:"admin"`
	Installer int `json:"installer"`
}

func (u UnreadCounters) For(viewer SenderType) int {
	if viewer == SenderInstaller {
		return u.Installer
	}
	return u.Admin
}

func (u *UnreadCounters) Set(viewer SenderType, n int) {
	if n < 0 {
		n = 0
	}
	if viewer == SenderInstaller {
		u.Installer = n
		return
	}
	u.Admin = n
}

type Conversation struct {
	ID           string         `json:"id"`
	Participants []Participant  `json:"participants"`
	LastMessage  *LastMessage   `json:"last_message"`
	UnreadCount  int            `json:"unread_count"`
	Unread       UnreadCounters `json:"unread"`
	IsImportant  bool           `json:"is_important"`
	IsMuted      bool           `json:"is_muted"`
	Tags         []string       `json:"tags"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (c *Conversation) participant(t SenderType) Participant {
	for _, p := range c.Participants {
		if p.Type == t {
			return p
		}
	}
	return Participant{}
}

func (c *Conversation) Installer() Participant {
	return c.participant(SenderInstaller)
}

func (c *Conversation) Admin() Participant {
	return c.participant(SenderAdmin)
}

func NewLastMessage(m Message) *LastMessage {
	return &LastMessage{
		MessageID: m.ID,
		Body:      m.Body,
		Timestamp: m.Timestamp,
		SenderID:  m.SenderID,
	}
}

// IsOlderThan reports whether m is more recent than the stored preview.
func (l *LastMessage) IsOlderThan(m Message) bool {
	if l == nil {
		return true
	}
	if !l.Timestamp.Equal(m.Timestamp) {
		return l.Timestamp.Before(m.Timestamp)
	}
	return l.MessageID < m.ID
}

// ActivityAt is the instant used for list ordering.
func (c *Conversation) ActivityAt() time.Time {
	if c.LastMessage != nil {
		return c.LastMessage.Timestamp
	}
	return c.CreatedAt
}

// SortsBefore implements the list order: important conversations first,
// then most recent activity first.
func (c *Conversation) SortsBefore(other *Conversation) bool {
	if c.IsImportant != other.IsImportant {
		return c.IsImportant
	}
	return c.ActivityAt().After(other.ActivityAt())
}

// Clone returns a deep copy safe to hand out of the registry.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Participants = append([]Participant(nil), c.Participants...)
	cp.Tags = append([]string{}, c.Tags...)
	if c.LastMessage != nil {
		lm := *c.LastMessage
		cp.LastMessage = &lm
	}
	return &cp
}
