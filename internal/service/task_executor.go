package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"task-scheduler/config"
	"task-scheduler/internal/model"
	"task-scheduler/pkg/httpclient"
	"task-scheduler/pkg/logger"
)

// ExecutionResult is the classified outcome of one outbound attempt. Exactly one of
// Response or Error carries the payload; StatusCode is unset on transport failures.
type ExecutionResult struct {
	Status         model.TaskStatus
	Response       []byte
	Error          string
	StatusCode     sql.NullInt32
	ResponseTimeMs int64
}

// TaskExecutor performs the task's outbound HTTP call. It never returns an error:
// every path, including transport failures, produces a classified result.
type TaskExecutor interface {
	Execute(ctx context.Context, task *model.Task) ExecutionResult
}

type taskExecutor struct {
	cfg    *config.Config
	log    *logger.Logger
	client httpclient.HTTPClient
}

func NewTaskExecutor(cfg *config.Config, log *logger.Logger, client httpclient.HTTPClient) TaskExecutor {
	return &taskExecutor{
		cfg:    cfg,
		log:    log,
		client: client,
	}
}

func (t *taskExecutor) Execute(ctx context.Context, task *model.Task) ExecutionResult {
	t.log.DebugContext(ctx, "Executing task",
		logger.IntField("task_id", int(task.ID)),
		logger.StringField("method", task.Method),
		logger.StringField("url", task.URL),
	)

	headers := make(map[string]string, len(task.Headers)+1)
	for k, v := range task.Headers {
		headers[k] = fmt.Sprintf("%v", v)
	}
	// The bearer token wins over a user-supplied Authorization header.
	if task.Token != "" {
		headers["Authorization"] = "Bearer " + task.Token
	}

	var body interface{}
	if task.Method != http.MethodGet && len(task.Body) > 0 {
		body = []byte(task.Body)
	}

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.Executor.SendTimeout)
	defer cancel()

	start := time.Now()
	resp, err := t.client.Do(callCtx, task.Method, task.URL, headers, body)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		// Transport failure: no HTTP response was obtained.
		return ExecutionResult{
			Status:         model.StatusFailed,
			Error:          err.Error(),
			ResponseTimeMs: elapsed,
		}
	}

	result := ExecutionResult{
		StatusCode:     sql.NullInt32{Int32: int32(resp.StatusCode), Valid: true},
		ResponseTimeMs: elapsed,
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Status = model.StatusCompleted
		result.Response = resp.Body
	} else {
		result.Status = model.StatusFailed
		result.Error = fmt.Sprintf("non-success status code: %d", resp.StatusCode)
	}
	return result
}
