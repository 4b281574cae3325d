package model

import (
	"database/sql"
	"time"
)

// ScheduleEntry is a durable "fire task X at time T" record. At most one entry
// exists per task; ClaimedUntil implements the poll lease.
type ScheduleEntry struct {
	ID           uint         `gorm:"primaryKey"`
	TaskID       uint         `gorm:"not null;uniqueIndex"`
	FireAt       time.Time    `gorm:"not null"`
	ClaimedUntil sql.NullTime
	CreatedAt    time.Time    `gorm:"autoCreateTime"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime"`
}

func (ScheduleEntry) TableName() string {
	return "schedule_entries"
}
