package dto

import (
	"time"

	"task-scheduler/internal/model"
)

type CreateTaskRequest struct {
	Name          string                 `json:"name" validate:"required"`
	URL           string                 `json:"url" validate:"required,url"`
	Method        string                 `json:"method" validate:"required,oneof=GET POST PUT DELETE PATCH"`
	Headers       map[string]interface{} `json:"headers,omitempty"`
	Token         string                 `json:"token,omitempty"`
	Body          map[string]interface{} `json:"body,omitempty"`
	ScheduledTime time.Time              `json:"scheduled_time" validate:"required"`
	MaxRetry      int                    `json:"max_retry,omitempty" validate:"omitempty,min=1,max=10"`
}

type UpdateTaskRequest struct {
	Name          *string                `json:"name,omitempty" validate:"omitempty,min=1"`
	URL           *string                `json:"url,omitempty" validate:"omitempty,url"`
	Method        *string                `json:"method,omitempty" validate:"omitempty,oneof=GET POST PUT DELETE PATCH"`
	Headers       map[string]interface{} `json:"headers,omitempty"`
	Token         *string                `json:"token,omitempty"`
	Body          map[string]interface{} `json:"body,omitempty"`
	ScheduledTime *time.Time             `json:"scheduled_time,omitempty"`
	MaxRetry      *int                   `json:"max_retry,omitempty" validate:"omitempty,min=1,max=10"`
}

type TaskListItem struct {
	ID            uint             `json:"id"`
	Name          string           `json:"name"`
	Status        model.TaskStatus `json:"status"`
	ScheduledTime time.Time        `json:"scheduled_time"`
	CreatedAt     time.Time        `json:"created_at"`
}

type TaskListResponse struct {
	Tasks      []TaskListItem `json:"tasks"`
	Pagination Pagination     `json:"pagination"`
}

type TaskHistoryResponse struct {
	History    []model.TaskHistory `json:"history"`
	Pagination Pagination          `json:"pagination"`
}
