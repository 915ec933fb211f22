package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is a single stored value.
type Entry struct {
	Namespace string `gorm:"primaryKey;size:255"`
	Key       string `gorm:"column:entry_key;primaryKey;size:255"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "entries"
}

// SQLStore keeps entries for many backends in one SQLite database,
// one namespace per backend host.
type SQLStore struct {
	db        *gorm.DB
	namespace string
}

func NewSQLStore(path string, namespace string) (*SQLStore, error) {
	if len(path) == 0 {
		dir, err := DefaultDirectory()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "portal.db")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	return NewSQLStoreWithDB(db, namespace)
}

func NewSQLStoreWithDB(db *gorm.DB, namespace string) (*SQLStore, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}

	return &SQLStore{
		db:        db,
		namespace: SanitiseNamespace(namespace),
	}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var entry Entry

	err := s.db.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", s.namespace, key).
		First(&entry).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	} else if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}

	return entry.Value, nil
}

func (s *SQLStore) Set(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]Entry, 0, len(entries))
	now := time.Now().UTC()
	for key, value := range entries {
		rows = append(rows, Entry{
			Namespace: s.namespace,
			Key:       key,
			Value:     value,
			UpdatedAt: now,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"namespace": s.namespace,
		}).Errorln("Failed to write session entries")
		return fmt.Errorf("failed to write session entries: %w", err)
	}

	return nil
}

func (s *SQLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.
			Where("namespace = ? AND entry_key IN ?", s.namespace, keys).
			Delete(&Entry{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete session entries: %w", err)
	}

	return nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
