package repository

import (
	"task-scheduler/config"

	"gorm.io/gorm"
)

type Repository struct {
	TaskRepo        TaskRepository
	TaskHistoryRepo TaskHistoryRepository
	UserRepo        UserRepository
	ScheduleStore   ScheduleStore
	UnitOfWork      UnitOfWork
}

func NewRepository(cfg *config.Config, db *gorm.DB) *Repository {
	return &Repository{
		TaskRepo:        NewTaskRepository(db),
		TaskHistoryRepo: NewTaskHistoryRepository(db),
		UserRepo:        NewUserRepository(db),
		ScheduleStore:   NewScheduleStore(db, cfg.Scheduler.LeaseTTL),
		UnitOfWork:      NewUnitOfWork(db),
	}
}
