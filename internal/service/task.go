package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"task-scheduler/config"
	"task-scheduler/internal/dto"
	"task-scheduler/internal/model"
	"task-scheduler/internal/repository"
	"task-scheduler/pkg/logger"
	"task-scheduler/pkg/utils"

	"gorm.io/datatypes"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrTaskNotEditable = errors.New("cannot update task that is not in pending status")
)

// TaskService is the CRUD surface consumed by the API layer. Every mutation keeps
// the 1:1 relationship between a task and its armed schedule entry.
type TaskService interface {
	Create(ctx context.Context, userID uint, req dto.CreateTaskRequest) (*model.Task, error)
	GetByID(ctx context.Context, userID, id uint) (*model.Task, error)
	List(ctx context.Context, userID uint, page, limit int) (*dto.TaskListResponse, error)
	Update(ctx context.Context, userID, id uint, req dto.UpdateTaskRequest) (*model.Task, error)
	Delete(ctx context.Context, userID, id uint) error
	History(ctx context.Context, userID uint, taskID *uint, page, limit int) (*dto.TaskHistoryResponse, error)
}

type taskService struct {
	cfg         *config.Config
	log         *logger.Logger
	taskRepo    repository.TaskRepository
	historyRepo repository.TaskHistoryRepository
	schedule    repository.ScheduleStore
	uow         repository.UnitOfWork
}

func NewTaskService(
	cfg *config.Config,
	log *logger.Logger,
	taskRepo repository.TaskRepository,
	historyRepo repository.TaskHistoryRepository,
	schedule repository.ScheduleStore,
	uow repository.UnitOfWork,
) TaskService {
	return &taskService{
		cfg:         cfg,
		log:         log,
		taskRepo:    taskRepo,
		historyRepo: historyRepo,
		schedule:    schedule,
		uow:         uow,
	}
}

func (s *taskService) Create(ctx context.Context, userID uint, req dto.CreateTaskRequest) (*model.Task, error) {
	maxRetry := req.MaxRetry
	if maxRetry == 0 {
		maxRetry = 3
	}

	task := &model.Task{
		UserID:        userID,
		Name:          req.Name,
		URL:           req.URL,
		Method:        req.Method,
		Headers:       datatypes.JSONMap(req.Headers),
		Token:         req.Token,
		ScheduledTime: req.ScheduledTime.UTC(),
		MaxRetry:      maxRetry,
		Status:        model.StatusPending,
	}
	if req.Body != nil {
		body, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode task body: %w", err)
		}
		task.Body = datatypes.JSON(body)
	}

	err := s.uow.Run(func(opts ...utils.DBOption) error {
		if err := s.taskRepo.Create(ctx, task, opts...); err != nil {
			return err
		}
		return s.schedule.Arm(ctx, task.ID, task.ScheduledTime, opts...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.log.InfoContext(ctx, "Task created and armed",
		logger.IntField("task_id", int(task.ID)),
		logger.StringField("scheduled_time", task.ScheduledTime.String()),
	)
	return task, nil
}

func (s *taskService) GetByID(ctx context.Context, userID, id uint) (*model.Task, error) {
	task, err := s.taskRepo.FindByIDForUser(ctx, id, userID,
		utils.WithOrderedPreload("History", "executed_at DESC"))
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, userID uint, page, limit int) (*dto.TaskListResponse, error) {
	tasks, total, err := s.taskRepo.GetPaginated(ctx, model.GetTaskParam{
		UserID: userID,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}

	items := make([]dto.TaskListItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, dto.TaskListItem{
			ID:            t.ID,
			Name:          t.Name,
			Status:        t.Status,
			ScheduledTime: t.ScheduledTime,
			CreatedAt:     t.CreatedAt,
		})
	}

	return &dto.TaskListResponse{
		Tasks: items,
		Pagination: dto.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: utils.TotalPages(total, limit),
		},
	}, nil
}

func (s *taskService) Update(ctx context.Context, userID, id uint, req dto.UpdateTaskRequest) (*model.Task, error) {
	task, err := s.taskRepo.FindByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if task.Status != model.StatusPending {
		return nil, ErrTaskNotEditable
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.URL != nil {
		fields["url"] = *req.URL
	}
	if req.Method != nil {
		fields["method"] = *req.Method
	}
	if req.Token != nil {
		fields["token"] = *req.Token
	}
	if req.MaxRetry != nil {
		fields["max_retry"] = *req.MaxRetry
	}
	if req.Headers != nil {
		headers, err := json.Marshal(req.Headers)
		if err != nil {
			return nil, fmt.Errorf("failed to encode task headers: %w", err)
		}
		fields["headers"] = datatypes.JSON(headers)
	}
	if req.Body != nil {
		body, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode task body: %w", err)
		}
		fields["body"] = datatypes.JSON(body)
	}

	fireAt := task.ScheduledTime
	if req.ScheduledTime != nil {
		fireAt = req.ScheduledTime.UTC()
		fields["scheduled_time"] = fireAt
	}

	err = s.uow.Run(func(opts ...utils.DBOption) error {
		if len(fields) > 0 {
			if err := s.taskRepo.UpdateFields(ctx, id, fields, opts...); err != nil {
				return err
			}
		}
		// Arm replaces any existing entry, so the task always ends up with exactly
		// one entry at the effective scheduled time.
		return s.schedule.Arm(ctx, id, fireAt, opts...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByIDForUser(ctx, id, userID)
}

func (s *taskService) Delete(ctx context.Context, userID, id uint) error {
	task, err := s.taskRepo.FindByIDForUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}

	return s.uow.Run(func(opts ...utils.DBOption) error {
		if err := s.schedule.Cancel(ctx, id, opts...); err != nil {
			return err
		}
		return s.taskRepo.Delete(ctx, id, opts...)
	})
}

func (s *taskService) History(ctx context.Context, userID uint, taskID *uint, page, limit int) (*dto.TaskHistoryResponse, error) {
	if taskID != nil {
		task, err := s.taskRepo.FindByIDForUser(ctx, *taskID, userID)
		if err != nil {
			return nil, err
		}
		if task == nil {
			return nil, ErrTaskNotFound
		}
	}

	history, total, err := s.historyRepo.GetPaginated(ctx, model.GetTaskHistoryParam{
		UserID: userID,
		TaskID: taskID,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}

	return &dto.TaskHistoryResponse{
		History: history,
		Pagination: dto.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: utils.TotalPages(total, limit),
		},
	}, nil
}
