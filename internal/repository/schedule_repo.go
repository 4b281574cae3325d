package repository

import (
	"context"
	"database/sql"
	"time"

	"task-scheduler/internal/model"
	"task-scheduler/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScheduleStore is the durable timer behind the scheduler loop. Exactly one entry
// exists per task; Arm replaces any previous entry, Cancel removes it, and PollDue
// atomically claims due entries with a bounded lease so two pollers never receive
// the same task at once.
type ScheduleStore interface {
	Arm(ctx context.Context, taskID uint, fireAt time.Time, opts ...utils.DBOption) error
	Cancel(ctx context.Context, taskID uint, opts ...utils.DBOption) error
	PollDue(ctx context.Context, now time.Time, limit int) ([]model.ScheduleEntry, error)
}

type scheduleStore struct {
	db       *gorm.DB
	leaseTTL time.Duration
}

func NewScheduleStore(db *gorm.DB, leaseTTL time.Duration) ScheduleStore {
	return &scheduleStore{db: db, leaseTTL: leaseTTL}
}

func (s *scheduleStore) Arm(ctx context.Context, taskID uint, fireAt time.Time, opts ...utils.DBOption) error {
	entry := model.ScheduleEntry{
		TaskID: taskID,
		FireAt: fireAt,
	}
	return utils.ApplyOptions(s.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"fire_at":       fireAt,
				"claimed_until": nil,
			}),
		}).
		Create(&entry).Error
}

func (s *scheduleStore) Cancel(ctx context.Context, taskID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(s.db.WithContext(ctx), opts...).
		Where("task_id = ?", taskID).
		Delete(&model.ScheduleEntry{}).Error
}

// PollDue claims up to limit due entries. The SELECT and the lease write happen in
// one transaction with FOR UPDATE SKIP LOCKED, so concurrent pollers partition the
// due set instead of double-claiming. A claim whose lease expired is due again.
func (s *scheduleStore) PollDue(ctx context.Context, now time.Time, limit int) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("fire_at <= ? AND (claimed_until IS NULL OR claimed_until <= ?)", now, now).
			Order("fire_at ASC").
			Limit(limit).
			Find(&entries).Error; err != nil {
			return err
		}

		if len(entries) == 0 {
			return nil
		}

		claimedUntil := now.Add(s.leaseTTL)
		ids := make([]uint, 0, len(entries))
		for i := range entries {
			ids = append(ids, entries[i].ID)
			entries[i].ClaimedUntil = sql.NullTime{Time: claimedUntil, Valid: true}
		}

		return tx.Model(&model.ScheduleEntry{}).
			Where("id IN ?", ids).
			Update("claimed_until", claimedUntil).Error
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}
