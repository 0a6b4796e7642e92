package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"installerhub/internal/domain/repository"
	apperrors "installerhub/pkg/errors"
)

const redisKeyPrefix = "installerhub:state:"

type RedisStateStore struct {
	client *redis.Client
}

var _ repository.StateStore = (*RedisStateStore)(nil)

func NewRedisStateStore(ctx context.Context, redisURL string) (*RedisStateStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStateStore{client: client}, nil
}

func NewRedisStateStoreWithClient(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) Close() error {
	return s.client.Close()
}

func (s *RedisStateStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Internal("Failed to load state "+key, err)
	}
	return value, true, nil
}

func (s *RedisStateStore) Save(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, value, 0).Err(); err != nil {
		return apperrors.Internal("Failed to save state "+key, err)
	}
	return nil
}
