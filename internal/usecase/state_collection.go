package usecase

import (
	"context"
	"encoding/json"
	"time"

	"installerhub/internal/domain/repository"
	"installerhub/pkg/errors"
)

// timeNow is swapped in tests that need a controlled clock.
var timeNow = time.Now

// stateCollection reads and writes one JSON-encoded collection of the state store.
type stateCollection[T any] struct {
	store repository.StateStore
	key   string
}

func (c stateCollection[T]) load(ctx context.Context) (T, error) {
	var value T
	raw, found, err := c.store.Load(ctx, c.key)
	if err != nil {
		return value, err
	}
	if !found || len(raw) == 0 {
		return value, nil
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, errors.Internal("Failed to decode "+c.key, err)
	}
	return value, nil
}

func (c stateCollection[T]) save(ctx context.Context, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Internal("Failed to encode "+c.key, err)
	}
	return c.store.Save(ctx, c.key, raw)
}
