package service

import (
	"context"
	"fmt"
	"time"

	"task-scheduler/config"
	"task-scheduler/internal/model"
	"task-scheduler/internal/repository"
	"task-scheduler/pkg/logger"
	"task-scheduler/pkg/utils"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"
)

// SchedulerService drives the poll loop: it claims due schedule entries, marks
// their tasks running and dispatches each to the executor on its own goroutine
// under the concurrency cap. Polling never waits on an individual execution.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop()
	PollOnce(ctx context.Context) error
}

type schedulerService struct {
	cfg         *config.Config
	log         *logger.Logger
	taskRepo    repository.TaskRepository
	schedule    repository.ScheduleStore
	executor    TaskExecutor
	coordinator RetryCoordinator
	sem         *semaphore.Weighted
	cron        *cron.Cron
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	taskRepo repository.TaskRepository,
	schedule repository.ScheduleStore,
	executor TaskExecutor,
	coordinator RetryCoordinator,
) SchedulerService {
	return &schedulerService{
		cfg:         cfg,
		log:         log,
		taskRepo:    taskRepo,
		schedule:    schedule,
		executor:    executor,
		coordinator: coordinator,
		sem:         semaphore.NewWeighted(cfg.Scheduler.Concurrency),
		cron:        cron.New(),
	}
}

func (s *schedulerService) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.Scheduler.PollSpec, func() {
		if err := s.PollOnce(ctx); err != nil {
			s.log.ErrorContext(ctx, "Poll cycle failed", logger.ErrorField(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid poll spec %q: %w", s.cfg.Scheduler.PollSpec, err)
	}

	s.cron.Start()
	s.log.Info("Scheduler started",
		logger.StringField("poll_spec", s.cfg.Scheduler.PollSpec),
		logger.IntField("concurrency", int(s.cfg.Scheduler.Concurrency)),
	)
	return nil
}

func (s *schedulerService) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}

func (s *schedulerService) PollOnce(ctx context.Context) error {
	now := time.Now().UTC()
	entries, err := s.schedule.PollDue(ctx, now, int(s.cfg.Scheduler.Concurrency))
	if err != nil {
		return fmt.Errorf("failed to poll due entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	s.log.DebugContext(ctx, "Claimed due entries", logger.IntField("count", len(entries)))

	for _, entry := range entries {
		if ctx.Err() != nil {
			s.log.WarnContext(ctx, "Poll cycle cancelled", logger.ErrorField(ctx.Err()))
			return nil
		}
		s.dispatch(ctx, entry)
	}
	return nil
}

func (s *schedulerService) dispatch(ctx context.Context, entry model.ScheduleEntry) {
	task, err := s.taskRepo.FindByID(ctx, entry.TaskID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load task for due entry",
			logger.ErrorField(err), logger.IntField("task_id", int(entry.TaskID)))
		return
	}
	if task == nil {
		// Due entry pointing at a deleted task: drop it, nothing to retry.
		s.log.WarnContext(ctx, "Due entry references missing task, dropping",
			logger.IntField("task_id", int(entry.TaskID)))
		if err := s.schedule.Cancel(ctx, entry.TaskID); err != nil {
			s.log.ErrorContext(ctx, "Failed to drop orphaned entry", logger.ErrorField(err))
		}
		return
	}
	if task.Status.IsTerminal() {
		s.log.WarnContext(ctx, "Due entry references terminal task, dropping",
			logger.IntField("task_id", int(task.ID)),
			logger.StringField("status", string(task.Status)))
		if err := s.schedule.Cancel(ctx, task.ID); err != nil {
			s.log.ErrorContext(ctx, "Failed to drop stale entry", logger.ErrorField(err))
		}
		return
	}

	// The claim's lease keeps the entry invisible to other pollers; if every slot
	// is busy we leave it claimed and it becomes due again on lease expiry.
	if !s.sem.TryAcquire(1) {
		s.log.DebugContext(ctx, "Concurrency ceiling reached, deferring task",
			logger.IntField("task_id", int(task.ID)))
		return
	}

	if err := s.taskRepo.UpdateFields(ctx, task.ID, map[string]interface{}{
		"status": model.StatusRunning,
	}); err != nil {
		s.sem.Release(1)
		s.log.ErrorContext(ctx, "Failed to mark task running",
			logger.ErrorField(err), logger.IntField("task_id", int(task.ID)))
		return
	}
	task.Status = model.StatusRunning

	utils.GoSafe(func() {
		defer s.sem.Release(1)
		s.runTask(task)
	})
}

// runTask is detached from the poll context: an in-flight attempt finishes and
// records its outcome even while the loop is shutting down.
func (s *schedulerService) runTask(task *model.Task) {
	ctx := logger.NewContext(context.Background(), s.log)

	result := s.executor.Execute(ctx, task)
	if err := s.coordinator.HandleResult(ctx, task, result); err != nil {
		s.log.ErrorContext(ctx, "Failed to record execution result",
			logger.ErrorField(err),
			logger.IntField("task_id", int(task.ID)),
			logger.StringField("result_status", string(result.Status)),
		)
	}
}
