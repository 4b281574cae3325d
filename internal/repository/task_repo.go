package repository

import (
	"context"
	"errors"

	"task-scheduler/internal/model"
	"task-scheduler/pkg/utils"

	"gorm.io/gorm"
)

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Task, error)
	FindByIDForUser(ctx context.Context, id, userID uint, opts ...utils.DBOption) (*model.Task, error)
	GetPaginated(ctx context.Context, param model.GetTaskParam) ([]model.Task, int64, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}, opts ...utils.DBOption) error
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(task).Error
}

func (r *taskRepository) FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Task, error) {
	var task model.Task
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&task, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) FindByIDForUser(ctx context.Context, id, userID uint, opts ...utils.DBOption) (*model.Task, error) {
	var task model.Task
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("id = ? AND user_id = ?", id, userID).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) GetPaginated(ctx context.Context, param model.GetTaskParam) ([]model.Task, int64, error) {
	var tasks []model.Task
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Task{}).Where("user_id = ?", param.UserID)
	if len(param.IDs) > 0 {
		db = db.Where("id IN ?", param.IDs)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if param.WithHistory {
		db = db.Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("executed_at DESC")
		})
	}
	if param.Limit > 0 {
		db = db.Offset((param.Page - 1) * param.Limit).Limit(param.Limit)
	}

	if err := db.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// UpdateFields writes the given columns directly. The coordinator uses this instead
// of struct updates so that NULLs (next_execution_at on terminal states) are written.
func (r *taskRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Task{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *taskRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.Task{}, id).Error
}
