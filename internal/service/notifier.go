package service

import (
	"context"
	"fmt"
	"time"

	"task-scheduler/internal/model"
	"task-scheduler/pkg/logger"

	"gopkg.in/telebot.v3"
)

// Notifier is the outbound notification collaborator. Calls are fire-and-forget
// from the coordinator's perspective; failures never feed back into task state.
type Notifier interface {
	NotifySuccess(ctx context.Context, task *model.Task, response []byte, responseTimeMs int64) error
	NotifyFailure(ctx context.Context, task *model.Task, errText string, attemptNumber, maxRetry int) error
	NotifyRetry(ctx context.Context, task *model.Task, errText string, nextExecutionAt time.Time, attemptNumber, maxRetry int) error
}

type telegramNotifier struct {
	log    *logger.Logger
	bot    *telebot.Bot
	chatID int64
}

func NewTelegramNotifier(log *logger.Logger, bot *telebot.Bot, chatID int64) Notifier {
	return &telegramNotifier{
		log:    log,
		bot:    bot,
		chatID: chatID,
	}
}

func (n *telegramNotifier) NotifySuccess(ctx context.Context, task *model.Task, response []byte, responseTimeMs int64) error {
	msg := fmt.Sprintf("✅ <b>Task Completed</b>\n\nName: %s\nURL: %s %s\nResponse time: %dms",
		task.Name, task.Method, task.URL, responseTimeMs)
	return n.send(msg)
}

func (n *telegramNotifier) NotifyFailure(ctx context.Context, task *model.Task, errText string, attemptNumber, maxRetry int) error {
	msg := fmt.Sprintf("❌ <b>Task Failed</b>\n\nName: %s\nURL: %s %s\nAttempt: %d/%d\nError: %s",
		task.Name, task.Method, task.URL, attemptNumber, maxRetry, errText)
	return n.send(msg)
}

func (n *telegramNotifier) NotifyRetry(ctx context.Context, task *model.Task, errText string, nextExecutionAt time.Time, attemptNumber, maxRetry int) error {
	msg := fmt.Sprintf("🔄 <b>Task Retry Scheduled</b>\n\nName: %s\nURL: %s %s\nAttempt: %d/%d\nNext retry: %s\nError: %s",
		task.Name, task.Method, task.URL, attemptNumber, maxRetry,
		nextExecutionAt.Format(time.RFC3339), errText)
	return n.send(msg)
}

func (n *telegramNotifier) send(msg string) error {
	_, err := n.bot.Send(telebot.ChatID(n.chatID), msg, telebot.ModeHTML)
	return err
}

// logNotifier is the fallback when no notification channel is configured.
type logNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) Notifier {
	return &logNotifier{log: log}
}

func (n *logNotifier) NotifySuccess(ctx context.Context, task *model.Task, response []byte, responseTimeMs int64) error {
	n.log.InfoContext(ctx, "Task completed",
		logger.IntField("task_id", int(task.ID)),
		logger.StringField("name", task.Name),
		logger.IntField("response_time_ms", int(responseTimeMs)),
	)
	return nil
}

func (n *logNotifier) NotifyFailure(ctx context.Context, task *model.Task, errText string, attemptNumber, maxRetry int) error {
	n.log.WarnContext(ctx, "Task failed permanently",
		logger.IntField("task_id", int(task.ID)),
		logger.StringField("name", task.Name),
		logger.IntField("attempt", attemptNumber),
		logger.IntField("max_retry", maxRetry),
		logger.StringField("error", errText),
	)
	return nil
}

func (n *logNotifier) NotifyRetry(ctx context.Context, task *model.Task, errText string, nextExecutionAt time.Time, attemptNumber, maxRetry int) error {
	n.log.WarnContext(ctx, "Task scheduled for retry",
		logger.IntField("task_id", int(task.ID)),
		logger.StringField("name", task.Name),
		logger.IntField("attempt", attemptNumber),
		logger.IntField("max_retry", maxRetry),
		logger.StringField("next_execution_at", nextExecutionAt.Format(time.RFC3339)),
		logger.StringField("error", errText),
	)
	return nil
}
