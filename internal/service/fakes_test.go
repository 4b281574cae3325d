package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"task-scheduler/internal/model"
	"task-scheduler/pkg/utils"

	"gorm.io/datatypes"
)

type fakeTaskRepo struct {
	mu     sync.Mutex
	nextID uint
	tasks  map[uint]*model.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[uint]*model.Task{}}
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *model.Task, opts ...utils.DBOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	task.ID = r.nextID
	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

func (r *fakeTaskRepo) FindByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	clone := *task
	return &clone, nil
}

func (r *fakeTaskRepo) FindByIDForUser(ctx context.Context, id, userID uint, opts ...utils.DBOption) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return nil, nil
	}
	clone := *task
	return &clone, nil
}

func (r *fakeTaskRepo) GetPaginated(ctx context.Context, param model.GetTaskParam) ([]model.Task, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Task
	for _, t := range r.tasks {
		if t.UserID == param.UserID {
			out = append(out, *t)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeTaskRepo) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}, opts ...utils.DBOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "status":
			task.Status = v.(model.TaskStatus)
		case "retry_count":
			task.RetryCount = v.(int)
		case "error":
			if s, ok := v.(string); ok {
				task.Error = sql.NullString{String: s, Valid: s != ""}
			}
		case "last_executed_at":
			task.LastExecutedAt = sql.NullTime{Time: v.(time.Time), Valid: true}
		case "next_execution_at":
			if v == nil {
				task.NextExecutionAt = sql.NullTime{}
			} else {
				task.NextExecutionAt = sql.NullTime{Time: v.(time.Time), Valid: true}
			}
		case "response":
			if j, ok := v.(datatypes.JSON); ok {
				task.Response = j
			}
		case "scheduled_time":
			task.ScheduledTime = v.(time.Time)
		case "name":
			task.Name = v.(string)
		case "url":
			task.URL = v.(string)
		case "method":
			task.Method = v.(string)
		case "token":
			task.Token = v.(string)
		case "max_retry":
			task.MaxRetry = v.(int)
		case "headers":
			// headers arrive as encoded JSON; the fake does not need to decode them
		case "body":
			if j, ok := v.(datatypes.JSON); ok {
				task.Body = j
			}
		}
	}
	return nil
}

func (r *fakeTaskRepo) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	return nil
}

type fakeHistoryRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   []model.TaskHistory
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{}
}

func (r *fakeHistoryRepo) Create(ctx context.Context, history *model.TaskHistory, opts ...utils.DBOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	history.ID = r.nextID
	r.rows = append(r.rows, *history)
	return nil
}

func (r *fakeHistoryRepo) GetPaginated(ctx context.Context, param model.GetTaskHistoryParam) ([]model.TaskHistory, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.TaskHistory
	for _, h := range r.rows {
		if param.TaskID == nil || h.TaskID == *param.TaskID {
			out = append(out, h)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeHistoryRepo) byTask(taskID uint) []model.TaskHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.TaskHistory
	for _, h := range r.rows {
		if h.TaskID == taskID {
			out = append(out, h)
		}
	}
	return out
}

type fakeScheduleStore struct {
	mu       sync.Mutex
	leaseTTL time.Duration
	fireAt   map[uint]time.Time
	claimed  map[uint]time.Time
}

func newFakeScheduleStore(leaseTTL time.Duration) *fakeScheduleStore {
	return &fakeScheduleStore{
		leaseTTL: leaseTTL,
		fireAt:   map[uint]time.Time{},
		claimed:  map[uint]time.Time{},
	}
}

func (s *fakeScheduleStore) Arm(ctx context.Context, taskID uint, fireAt time.Time, opts ...utils.DBOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fireAt[taskID] = fireAt
	delete(s.claimed, taskID)
	return nil
}

func (s *fakeScheduleStore) Cancel(ctx context.Context, taskID uint, opts ...utils.DBOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fireAt, taskID)
	delete(s.claimed, taskID)
	return nil
}

func (s *fakeScheduleStore) PollDue(ctx context.Context, now time.Time, limit int) ([]model.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []model.ScheduleEntry
	for taskID, fireAt := range s.fireAt {
		if len(entries) >= limit {
			break
		}
		if fireAt.After(now) {
			continue
		}
		if until, ok := s.claimed[taskID]; ok && until.After(now) {
			continue
		}
		s.claimed[taskID] = now.Add(s.leaseTTL)
		entries = append(entries, model.ScheduleEntry{
			ID:     taskID,
			TaskID: taskID,
			FireAt: fireAt,
		})
	}
	return entries, nil
}

func (s *fakeScheduleStore) armedAt(taskID uint) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fireAt, ok := s.fireAt[taskID]
	return fireAt, ok
}

func (s *fakeScheduleStore) armedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fireAt)
}

type fakeUnitOfWork struct{}

func (fakeUnitOfWork) Run(fn func(opts ...utils.DBOption) error) error {
	return fn()
}

type notifierCall struct {
	kind            string
	taskID          uint
	attemptNumber   int
	maxRetry        int
	nextExecutionAt time.Time
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{}
}

func (n *fakeNotifier) NotifySuccess(ctx context.Context, task *model.Task, response []byte, responseTimeMs int64) error {
	n.record(notifierCall{kind: "success", taskID: task.ID})
	return nil
}

func (n *fakeNotifier) NotifyFailure(ctx context.Context, task *model.Task, errText string, attemptNumber, maxRetry int) error {
	n.record(notifierCall{kind: "failure", taskID: task.ID, attemptNumber: attemptNumber, maxRetry: maxRetry})
	return nil
}

func (n *fakeNotifier) NotifyRetry(ctx context.Context, task *model.Task, errText string, nextExecutionAt time.Time, attemptNumber, maxRetry int) error {
	n.record(notifierCall{kind: "retry", taskID: task.ID, attemptNumber: attemptNumber, maxRetry: maxRetry, nextExecutionAt: nextExecutionAt})
	return nil
}

func (n *fakeNotifier) record(call notifierCall) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, call)
}

func (n *fakeNotifier) callKinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]string, 0, len(n.calls))
	for _, c := range n.calls {
		kinds = append(kinds, c.kind)
	}
	return kinds
}

type fakeExecutor struct {
	mu      sync.Mutex
	results map[uint][]ExecutionResult
	block   chan struct{}
	started chan uint
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{results: map[uint][]ExecutionResult{}}
}

func (e *fakeExecutor) enqueue(taskID uint, results ...ExecutionResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[taskID] = append(e.results[taskID], results...)
}

func (e *fakeExecutor) Execute(ctx context.Context, task *model.Task) ExecutionResult {
	if e.started != nil {
		e.started <- task.ID
	}
	if e.block != nil {
		<-e.block
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	queue := e.results[task.ID]
	if len(queue) == 0 {
		return ExecutionResult{Status: model.StatusCompleted}
	}
	result := queue[0]
	e.results[task.ID] = queue[1:]
	return result
}

type panickyExecutor struct{}

func (panickyExecutor) Execute(ctx context.Context, task *model.Task) ExecutionResult {
	panic("executor blew up")
}
