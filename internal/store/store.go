// Package store persists the operation audit log in a local SQLite database.
package store

import (
	"fmt"

	"github.com/zulandar/rds/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultLimit bounds Recent queries when the caller passes limit <= 0.
const DefaultLimit = 50

// Store wraps the audit database.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the audit database at path and runs
// migrations. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&models.OpRecord{}); err != nil {
		return nil, fmt.Errorf("store: auto-migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Append writes one audit record.
func (s *Store) Append(rec models.OpRecord) error {
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// Recent returns the newest records, optionally filtered by engine.
func (s *Store) Recent(engine string, limit int) ([]models.OpRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := s.db.Order("id DESC").Limit(limit)
	if engine != "" {
		q = q.Where("engine = ?", engine)
	}
	var recs []models.OpRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	return recs, nil
}
