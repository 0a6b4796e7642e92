package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"installerhub/internal/domain/repository"
	"installerhub/pkg/config"
	"installerhub/pkg/logger"
)

// NewStateStore builds the backend named by cfg.StateBackend. The returned
// close function releases the backend's connections.
func NewStateStore(ctx context.Context, cfg *config.Config) (repository.StateStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StateBackend {
	case "", "memory":
		logger.Warn("Using in-memory state store; conversations are lost on restart")
		return NewMemoryStateStore(), noop, nil

	case "sqlite":
		store, err := NewSQLiteStateStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using sqlite state store at %s", cfg.SQLitePath)
		return store, store.Close, nil

	case "redis":
		store, err := NewRedisStateStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		logger.Info("Using redis state store")
		return store, store.Close, nil

	case "postgres":
		store, err := NewPostgresStateStore(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		logger.Info("Using postgres state store")
		return store, store.Close, nil

	case "firestore":
		var opts []option.ClientOption
		if cfg.FirebaseServiceAccount != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.FirebaseServiceAccount))
		}
		client, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("creating firestore client: %w", err)
		}
		logger.Info("Using firestore state store for project %s", cfg.FirebaseProject)
		return NewFirestoreStateStore(client), client.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
}
