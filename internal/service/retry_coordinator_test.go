package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"task-scheduler/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coordinatorFixture struct {
	coordinator RetryCoordinator
	taskRepo    *fakeTaskRepo
	historyRepo *fakeHistoryRepo
	schedule    *fakeScheduleStore
	notifier    *fakeNotifier
}

func newCoordinatorFixture(t *testing.T) *coordinatorFixture {
	t.Helper()
	taskRepo := newFakeTaskRepo()
	historyRepo := newFakeHistoryRepo()
	schedule := newFakeScheduleStore(30 * time.Second)
	notifier := newFakeNotifier()
	coordinator := NewRetryCoordinator(
		testConfig(), testLogger(t), taskRepo, historyRepo, schedule, fakeUnitOfWork{}, notifier,
	)
	return &coordinatorFixture{
		coordinator: coordinator,
		taskRepo:    taskRepo,
		historyRepo: historyRepo,
		schedule:    schedule,
		notifier:    notifier,
	}
}

func (f *coordinatorFixture) seedTask(t *testing.T, maxRetry int) *model.Task {
	t.Helper()
	task := &model.Task{
		UserID:        1,
		Name:          "ping",
		URL:           "https://example.com/hook",
		Method:        "POST",
		MaxRetry:      maxRetry,
		Status:        model.StatusRunning,
		ScheduledTime: time.Now().UTC(),
	}
	require.NoError(t, f.taskRepo.Create(context.Background(), task))
	require.NoError(t, f.schedule.Arm(context.Background(), task.ID, task.ScheduledTime))
	return task
}

func failedResult(code int32) ExecutionResult {
	return ExecutionResult{
		Status:         model.StatusFailed,
		Error:          fmt.Sprintf("non-success status code: %d", code),
		StatusCode:     sql.NullInt32{Int32: code, Valid: true},
		ResponseTimeMs: 12,
	}
}

func TestHandleResultSuccessFirstAttempt(t *testing.T) {
	f := newCoordinatorFixture(t)
	task := f.seedTask(t, 3)

	err := f.coordinator.HandleResult(context.Background(), task, ExecutionResult{
		Status:         model.StatusCompleted,
		Response:       []byte(`{"done":true}`),
		StatusCode:     sql.NullInt32{Int32: 200, Valid: true},
		ResponseTimeMs: 40,
	})
	require.NoError(t, err)

	stored, err := f.taskRepo.FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.Equal(t, 0, stored.RetryCount)
	assert.True(t, stored.LastExecutedAt.Valid)
	assert.False(t, stored.NextExecutionAt.Valid)
	assert.JSONEq(t, `{"done":true}`, string(stored.Response))

	rows := f.historyRepo.byTask(task.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptNumber)
	assert.Equal(t, model.StatusCompleted, rows[0].Status)
	assert.Equal(t, int32(200), rows[0].StatusCode.Int32)

	assert.Equal(t, 0, f.schedule.armedCount())
	assert.Equal(t, []string{"success"}, f.notifier.callKinds())
}

func TestHandleResultFailureSchedulesRetry(t *testing.T) {
	f := newCoordinatorFixture(t)
	task := f.seedTask(t, 3)

	err := f.coordinator.HandleResult(context.Background(), task, failedResult(500))
	require.NoError(t, err)

	stored, err := f.taskRepo.FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRetry, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	require.True(t, stored.LastExecutedAt.Valid)
	require.True(t, stored.NextExecutionAt.Valid)
	assert.Equal(t, time.Hour, stored.NextExecutionAt.Time.Sub(stored.LastExecutedAt.Time))

	fireAt, armed := f.schedule.armedAt(task.ID)
	require.True(t, armed)
	assert.Equal(t, stored.NextExecutionAt.Time, fireAt)

	rows := f.historyRepo.byTask(task.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptNumber)
	assert.Equal(t, model.StatusFailed, rows[0].Status)

	assert.Equal(t, []string{"retry"}, f.notifier.callKinds())
}

func TestHandleResultExhaustsRetriesIntoFailed(t *testing.T) {
	f := newCoordinatorFixture(t)
	task := f.seedTask(t, 3)

	for i := 0; i < 3; i++ {
		current, err := f.taskRepo.FindByID(context.Background(), task.ID)
		require.NoError(t, err)
		require.NoError(t, f.coordinator.HandleResult(context.Background(), current, failedResult(500)))
	}

	stored, err := f.taskRepo.FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, stored.Status)
	assert.Equal(t, 3, stored.RetryCount)
	assert.False(t, stored.NextExecutionAt.Valid)
	assert.Equal(t, "non-success status code: 500", stored.Error.String)

	rows := f.historyRepo.byTask(task.ID)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, i+1, row.AttemptNumber)
		assert.Equal(t, model.StatusFailed, row.Status)
		assert.Equal(t, int32(500), row.StatusCode.Int32)
	}

	assert.Equal(t, 0, f.schedule.armedCount())
	assert.Equal(t, []string{"retry", "retry", "failure"}, f.notifier.callKinds())
}

func TestHandleResultSuccessAfterRetryKeepsRetryCount(t *testing.T) {
	f := newCoordinatorFixture(t)
	task := f.seedTask(t, 3)

	require.NoError(t, f.coordinator.HandleResult(context.Background(), task, failedResult(502)))

	current, err := f.taskRepo.FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	require.NoError(t, f.coordinator.HandleResult(context.Background(), current, ExecutionResult{
		Status:     model.StatusCompleted,
		Response:   []byte(`"ok"`),
		StatusCode: sql.NullInt32{Int32: 200, Valid: true},
	}))

	stored, err := f.taskRepo.FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.False(t, stored.NextExecutionAt.Valid)

	rows := f.historyRepo.byTask(task.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].AttemptNumber)
	assert.Equal(t, 2, rows[1].AttemptNumber)
	assert.Equal(t, 0, f.schedule.armedCount())
}

func TestHandleResultDropsDeletedTask(t *testing.T) {
	f := newCoordinatorFixture(t)
	task := f.seedTask(t, 3)
	require.NoError(t, f.taskRepo.Delete(context.Background(), task.ID))
	require.NoError(t, f.schedule.Cancel(context.Background(), task.ID))

	err := f.coordinator.HandleResult(context.Background(), task, failedResult(500))
	require.NoError(t, err)

	assert.Empty(t, f.historyRepo.byTask(task.ID))
	assert.Equal(t, 0, f.schedule.armedCount())
	assert.Empty(t, f.notifier.callKinds())
}

func TestHandleResultDropsTerminalTask(t *testing.T) {
	f := newCoordinatorFixture(t)
	task := f.seedTask(t, 3)
	require.NoError(t, f.taskRepo.UpdateFields(context.Background(), task.ID, map[string]interface{}{
		"status": model.StatusCompleted,
	}))

	err := f.coordinator.HandleResult(context.Background(), task, failedResult(500))
	require.NoError(t, err)

	assert.Empty(t, f.historyRepo.byTask(task.ID))
	assert.Equal(t, 0, f.schedule.armedCount())
	assert.Empty(t, f.notifier.callKinds())
}

func TestHandleResultStoresNonJSONResponseAsString(t *testing.T) {
	f := newCoordinatorFixture(t)
	task := f.seedTask(t, 3)

	err := f.coordinator.HandleResult(context.Background(), task, ExecutionResult{
		Status:     model.StatusCompleted,
		Response:   []byte("plain text pong"),
		StatusCode: sql.NullInt32{Int32: 200, Valid: true},
	})
	require.NoError(t, err)

	rows := f.historyRepo.byTask(task.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, `"plain text pong"`, string(rows[0].Response))
}
