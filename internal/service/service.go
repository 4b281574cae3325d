package service

import (
	"task-scheduler/config"
	"task-scheduler/internal/repository"
	"task-scheduler/pkg/cache"
	"task-scheduler/pkg/httpclient"
	"task-scheduler/pkg/logger"
)

type Service struct {
	AuthService      AuthService
	TaskService      TaskService
	SchedulerService SchedulerService
	TaskExecutor     TaskExecutor
	RetryCoordinator RetryCoordinator
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
	notifier Notifier,
) *Service {
	client := httpclient.New(cfg.Executor.SendTimeout)
	executor := NewTaskExecutor(cfg, log, client)
	coordinator := NewRetryCoordinator(cfg, log, repo.TaskRepo, repo.TaskHistoryRepo, repo.ScheduleStore, repo.UnitOfWork, notifier)
	scheduler := NewSchedulerService(cfg, log, repo.TaskRepo, repo.ScheduleStore, executor, coordinator)

	return &Service{
		AuthService:      NewAuthService(cfg, log, repo.UserRepo, inmemoryCache),
		TaskService:      NewTaskService(cfg, log, repo.TaskRepo, repo.TaskHistoryRepo, repo.ScheduleStore, repo.UnitOfWork),
		SchedulerService: scheduler,
		TaskExecutor:     executor,
		RetryCoordinator: coordinator,
	}
}
