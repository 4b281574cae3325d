package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusRetry     TaskStatus = "retry"
)

// IsTerminal reports whether no further execution can occur.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is a user-defined future HTTP call with bounded retries. It is mutated only
// by the retry coordinator during execution, and by the API layer while pending.
type Task struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	UserID          uint              `gorm:"not null" json:"user_id"`
	Name            string            `gorm:"type:varchar(255);not null" json:"name"`
	URL             string            `gorm:"type:varchar(2048);not null" json:"url"`
	Method          string            `gorm:"type:varchar(10);not null;default:GET" json:"method"`
	Headers         datatypes.JSONMap `gorm:"type:jsonb" json:"headers,omitempty"`
	Token           string            `gorm:"type:varchar(512)" json:"-"`
	Body            datatypes.JSON    `gorm:"type:jsonb" json:"body,omitempty"`
	ScheduledTime   time.Time         `gorm:"not null" json:"scheduled_time"`
	MaxRetry        int               `gorm:"not null;default:3" json:"max_retry"`
	Status          TaskStatus        `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	RetryCount      int               `gorm:"not null;default:0" json:"retry_count"`
	LastExecutedAt  sql.NullTime      `json:"last_executed_at"`
	NextExecutionAt sql.NullTime      `json:"next_execution_at"`
	Response        datatypes.JSON    `gorm:"type:jsonb" json:"response,omitempty"`
	Error           sql.NullString    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	User    User          `gorm:"foreignKey:UserID;references:ID" json:"-"`
	History []TaskHistory `gorm:"foreignKey:TaskID" json:"history,omitempty"`
}

func (Task) TableName() string {
	return "tasks"
}

type GetTaskParam struct {
	UserID      uint
	IDs         []uint
	Page        int
	Limit       int
	WithHistory bool
}
