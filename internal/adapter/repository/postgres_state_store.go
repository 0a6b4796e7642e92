package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"installerhub/internal/domain/repository"
	apperrors "installerhub/pkg/errors"
)

type engineState struct {
	Key       string `gorm:"primaryKey;type:varchar(128)"`
	Value     []byte `gorm:"type:bytea;not null"`
	UpdatedAt time.Time
}

type PostgresStateStore struct {
	db *gorm.DB
}

var _ repository.StateStore = (*PostgresStateStore)(nil)

func NewPostgresStateStore(databaseURL string) (*PostgresStateStore, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&engineState{}); err != nil {
		return nil, err
	}

	return &PostgresStateStore{db: db}, nil
}

func (s *PostgresStateStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStateStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var row engineState
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Internal("Failed to load state "+key, err)
	}
	return row.Value, true, nil
}

func (s *PostgresStateStore) Save(ctx context.Context, key string, value []byte) error {
	row := engineState{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return apperrors.Internal("Failed to save state "+key, err)
	}
	return nil
}
