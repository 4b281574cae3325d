package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"task-scheduler/config"
	"task-scheduler/internal/model"
	"task-scheduler/internal/repository"
	"task-scheduler/pkg/logger"
	"task-scheduler/pkg/utils"

	"gorm.io/datatypes"
)

// RetryCoordinator owns every task state transition that follows an execution
// attempt. It appends exactly one history row per attempt, updates the task, and
// keeps the schedule store consistent: re-armed on retry, empty on terminal states.
type RetryCoordinator interface {
	HandleResult(ctx context.Context, task *model.Task, result ExecutionResult) error
}

type retryCoordinator struct {
	cfg         *config.Config
	log         *logger.Logger
	taskRepo    repository.TaskRepository
	historyRepo repository.TaskHistoryRepository
	schedule    repository.ScheduleStore
	uow         repository.UnitOfWork
	notifier    Notifier
}

func NewRetryCoordinator(
	cfg *config.Config,
	log *logger.Logger,
	taskRepo repository.TaskRepository,
	historyRepo repository.TaskHistoryRepository,
	schedule repository.ScheduleStore,
	uow repository.UnitOfWork,
	notifier Notifier,
) RetryCoordinator {
	return &retryCoordinator{
		cfg:         cfg,
		log:         log,
		taskRepo:    taskRepo,
		historyRepo: historyRepo,
		schedule:    schedule,
		uow:         uow,
		notifier:    notifier,
	}
}

func (c *retryCoordinator) HandleResult(ctx context.Context, task *model.Task, result ExecutionResult) error {
	executedAt := time.Now().UTC()

	var (
		outcome         model.TaskStatus
		attemptNumber   int
		maxRetry        int
		nextExecutionAt time.Time
	)

	err := c.uow.Run(func(opts ...utils.DBOption) error {
		// Re-read inside the transaction: the task may have been deleted while the
		// attempt was in flight. In that case the result is dropped, and no re-arm
		// happens.
		fresh, err := c.taskRepo.FindByID(ctx, task.ID, opts...)
		if err != nil {
			return err
		}
		if fresh == nil {
			c.log.WarnContext(ctx, "Task deleted during execution, dropping result",
				logger.IntField("task_id", int(task.ID)))
			outcome = ""
			return nil
		}
		if fresh.Status.IsTerminal() {
			c.log.WarnContext(ctx, "Task already terminal, dropping result",
				logger.IntField("task_id", int(task.ID)),
				logger.StringField("status", string(fresh.Status)))
			outcome = ""
			return c.schedule.Cancel(ctx, fresh.ID, opts...)
		}

		attemptNumber = fresh.RetryCount + 1
		maxRetry = fresh.MaxRetry

		history := &model.TaskHistory{
			TaskID:        fresh.ID,
			Status:        result.Status,
			AttemptNumber: attemptNumber,
			ExecutedAt:    executedAt,
			Response:      toJSON(result.Response),
			Error:         nullString(result.Error),
			ResponseTime:  result.ResponseTimeMs,
			StatusCode:    result.StatusCode,
		}
		if err := c.historyRepo.Create(ctx, history, opts...); err != nil {
			return err
		}

		switch {
		case result.Status == model.StatusCompleted:
			outcome = model.StatusCompleted
			if err := c.schedule.Cancel(ctx, fresh.ID, opts...); err != nil {
				return err
			}
			return c.taskRepo.UpdateFields(ctx, fresh.ID, map[string]interface{}{
				"status":            model.StatusCompleted,
				"response":          toJSON(result.Response),
				"last_executed_at":  executedAt,
				"next_execution_at": nil,
			}, opts...)

		case attemptNumber >= maxRetry:
			outcome = model.StatusFailed
			if err := c.schedule.Cancel(ctx, fresh.ID, opts...); err != nil {
				return err
			}
			return c.taskRepo.UpdateFields(ctx, fresh.ID, map[string]interface{}{
				"status":            model.StatusFailed,
				"retry_count":       attemptNumber,
				"error":             result.Error,
				"last_executed_at":  executedAt,
				"next_execution_at": nil,
			}, opts...)

		default:
			outcome = model.StatusRetry
			nextExecutionAt = executedAt.Add(time.Duration(c.cfg.Scheduler.RetryOffset) * time.Hour)
			if err := c.taskRepo.UpdateFields(ctx, fresh.ID, map[string]interface{}{
				"status":            model.StatusRetry,
				"retry_count":       attemptNumber,
				"error":             result.Error,
				"last_executed_at":  executedAt,
				"next_execution_at": nextExecutionAt,
			}, opts...); err != nil {
				return err
			}
			return c.schedule.Arm(ctx, fresh.ID, nextExecutionAt, opts...)
		}
	})
	if err != nil {
		return err
	}

	c.notify(ctx, task, result, outcome, attemptNumber, maxRetry, nextExecutionAt)
	return nil
}

// notify fires after the transaction committed. Notifier failures are logged and
// never reach task state.
func (c *retryCoordinator) notify(ctx context.Context, task *model.Task, result ExecutionResult, outcome model.TaskStatus, attemptNumber, maxRetry int, nextExecutionAt time.Time) {
	var err error
	switch outcome {
	case model.StatusCompleted:
		err = c.notifier.NotifySuccess(ctx, task, result.Response, result.ResponseTimeMs)
	case model.StatusFailed:
		err = c.notifier.NotifyFailure(ctx, task, result.Error, attemptNumber, maxRetry)
	case model.StatusRetry:
		err = c.notifier.NotifyRetry(ctx, task, result.Error, nextExecutionAt, attemptNumber, maxRetry)
	default:
		return
	}
	if err != nil {
		c.log.ErrorContext(ctx, "Failed to send notification",
			logger.ErrorField(err),
			logger.IntField("task_id", int(task.ID)))
	}
}

// toJSON stores the raw response payload in a jsonb column. Non-JSON bodies are
// stored as a JSON string rather than rejected by the database.
func toJSON(b []byte) datatypes.JSON {
	if len(b) == 0 {
		return nil
	}
	if json.Valid(b) {
		return datatypes.JSON(b)
	}
	quoted, err := json.Marshal(string(b))
	if err != nil {
		return nil
	}
	return datatypes.JSON(quoted)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
