package models

import "time"

// Operation status values.
const (
	OpStatusOK     = "ok"
	OpStatusFailed = "failed"
)

// OpRecord is one audited engine operation (action, backup, or restore).
type OpRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Engine     string `gorm:"size:64;index"`
	Action     string `gorm:"size:32"`
	Status     string `gorm:"size:8"`
	Detail     string `gorm:"type:text"`
	StartedAt  time.Time
	DurationMs int64
}
