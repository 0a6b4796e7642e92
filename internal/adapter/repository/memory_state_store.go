package repository

import (
	"context"
	"sync"

	"installerhub/internal/domain/repository"
)

type memoryStateStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryStateStore() repository.StateStore {
	return &memoryStateStore{
		values: make(map[string][]byte),
	}
}

func (s *memoryStateStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *memoryStateStore) Save(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}
