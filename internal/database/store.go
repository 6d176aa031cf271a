package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ideon/internal/observability"
)

// Entry is one persisted key/value snapshot.
type Entry struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName pins the table name independent of gorm's pluralization.
func (Entry) TableName() string { return "ideon_kv" }

// Store implements snapshot storage on top of the ideon_kv table.
type Store struct {
	db     *gorm.DB
	driver string
}

// NewStore wraps db. driver is only used for naming.
func NewStore(db *gorm.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// Get returns the value at key and whether it existed.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := observability.StartClientSpan(ctx, s.driver, "get")
	defer span.End()

	var entry Entry
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		span.SetError(err)
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set upserts value at key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	ctx, span := observability.StartClientSpan(ctx, s.driver, "set")
	defer span.End()

	entry := Entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		span.SetError(err)
	}
	return err
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&Entry{}).Error
}

// Name identifies the backend in logs and metrics.
func (s *Store) Name() string { return s.driver }
