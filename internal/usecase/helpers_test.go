package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"installerhub/internal/domain/entity"
	"installerhub/internal/infrastructure/eventhub"
)

// fakeStateStore is an in-memory StateStore whose saves can be made to fail.
type fakeStateStore struct {
	mu       sync.Mutex
	values   map[string][]byte
	failSave bool
	saves    int
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{values: make(map[string][]byte)}
}

func (s *fakeStateStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return append([]byte(nil), v...), ok, nil
}

func (s *fakeStateStore) Save(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("disk full")
	}
	s.saves++
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// recorder captures every event the hub publishes, in order.
type recorder struct {
	mu     sync.Mutex
	events []eventhub.Event
}

func record(hub *eventhub.Hub) *recorder {
	r := &recorder{}
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
		hub.On(name, func(ctx context.Context, event eventhub.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, event)
			return nil
		})
	}
	return r
}

func (r *recorder) names() []eventhub.Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]eventhub.Name, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventName())
	}
	return out
}

func (r *recorder) count(name eventhub.Name) int {
	n := 0
	for _, got := range r.names() {
		if got == name {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// useClock makes timeNow tick forward one second per call.
func useClock(t *testing.T) {
	t.Helper()
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	timeNow = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
	t.Cleanup(func() { timeNow = time.Now })
}

func installer(id, name string) entity.Participant {
	return entity.Participant{ID: id, Name: name, Type: entity.SenderInstaller}
}

func admin(name string) entity.Participant {
	return entity.Participant{ID: entity.AdminPoolID, Name: name, Type: entity.SenderAdmin}
}
