package repository

import (
	"context"

	"task-scheduler/internal/model"
	"task-scheduler/pkg/utils"

	"gorm.io/gorm"
)

type TaskHistoryRepository interface {
	Create(ctx context.Context, history *model.TaskHistory, opts ...utils.DBOption) error
	GetPaginated(ctx context.Context, param model.GetTaskHistoryParam) ([]model.TaskHistory, int64, error)
}

type taskHistoryRepository struct {
	db *gorm.DB
}

func NewTaskHistoryRepository(db *gorm.DB) TaskHistoryRepository {
	return &taskHistoryRepository{db: db}
}

func (r *taskHistoryRepository) Create(ctx context.Context, history *model.TaskHistory, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(history).Error
}

// GetPaginated returns history rows newest first, scoped to one task when TaskID is
// set, otherwise across all of the user's tasks.
func (r *taskHistoryRepository) GetPaginated(ctx context.Context, param model.GetTaskHistoryParam) ([]model.TaskHistory, int64, error) {
	var history []model.TaskHistory
	var total int64

	db := r.db.WithContext(ctx).Model(&model.TaskHistory{}).
		Joins("JOIN tasks ON tasks.id = task_histories.task_id").
		Where("tasks.user_id = ?", param.UserID)
	if param.TaskID != nil {
		db = db.Where("task_histories.task_id = ?", *param.TaskID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if param.Limit > 0 {
		db = db.Offset((param.Page - 1) * param.Limit).Limit(param.Limit)
	}

	if err := db.Order("task_histories.executed_at DESC").Find(&history).Error; err != nil {
		return nil, 0, err
	}
	return history, total, nil
}
