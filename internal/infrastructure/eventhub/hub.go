package eventhub

import (
	"context"
	"fmt"
	"sync"

	"installerhub/internal/infrastructure/metrics"
	"installerhub/pkg/logger"
)

// Handler receives one published event. A returned error is logged and
// does not stop delivery to the remaining handlers.
type Handler func(ctx context.Context, event Event) error

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	name Name
	id   uint64
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Hub is an in-process publish/subscribe bus. Handlers run synchronously
// in subscription order on the emitting goroutine.
type Hub struct {
	mu          sync.RWMutex
	nextID      uint64
	subscribers map[Name][]subscriber
}

func New() *Hub {
	return &Hub{
		subscribers: make(map[Name][]subscriber),
	}
}

func (h *Hub) On(name Name, handler Handler) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.subscribers[name] = append(h.subscribers[name], subscriber{id: h.nextID, handler: handler})
	return Subscription{name: name, id: h.nextID}
}

// Off removes a handler. It reports false when the subscription was not active.
func (h *Hub) Off(sub Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[sub.name]
	for i, s := range subs {
		if s.id == sub.id {
			h.subscribers[sub.name] = append(subs[:i:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// Emit delivers event to every handler subscribed to its name.
func (h *Hub) Emit(ctx context.Context, event Event) {
	name := event.EventName()

	h.mu.RLock()
	subs := append([]subscriber(nil), h.subscribers[name]...)
	h.mu.RUnlock()

	for _, s := range subs {
		if err := h.invoke(ctx, s.handler, event); err != nil {
			metrics.ListenerFailures.WithLabelValues(string(name)).Inc()
			logger.Error("Event hub: handler for %s failed: %v", name, err)
		}
	}
}

func (h *Hub) invoke(ctx context.Context, handler Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, event)
}

// Subscribe registers a handler typed to a single payload.
func Subscribe[E Event](h *Hub, fn func(ctx context.Context, event E) error) Subscription {
	var zero E
	return h.On(zero.EventName(), func(ctx context.Context, event Event) error {
		typed, ok := event.(E)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", event, zero.EventName())
		}
		return fn(ctx, typed)
	})
}
