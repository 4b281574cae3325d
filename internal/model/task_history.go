package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

// TaskHistory is the immutable record of one execution attempt. Rows are only ever
// appended; deletion happens through the owning task's cascade.
type TaskHistory struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	TaskID        uint           `gorm:"not null" json:"task_id"`
	Status        TaskStatus     `gorm:"type:varchar(20);not null" json:"status"`
	AttemptNumber int            `gorm:"not null" json:"attempt_number"`
	ExecutedAt    time.Time      `gorm:"not null" json:"executed_at"`
	Response      datatypes.JSON `gorm:"type:jsonb" json:"response,omitempty"`
	Error         sql.NullString `gorm:"type:text" json:"error,omitempty"`
	ResponseTime  int64          `gorm:"not null" json:"response_time"`
	StatusCode    sql.NullInt32  `json:"status_code"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (TaskHistory) TableName() string {
	return "task_histories"
}

type GetTaskHistoryParam struct {
	UserID uint
	TaskID *uint
	Page   int
	Limit  int
}
