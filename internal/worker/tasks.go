package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jimdaga/promise/internal/notify"
)

// Task type constants
const (
	TaskSendEmail     = "email:send"
	TaskReminderSweep = "reminders:sweep"
)

// Enqueuer hands notifications to the asynq queue. It satisfies notify.Dispatcher.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer connects an asynq client to redisURL
func NewEnqueuer(redisURL string) (*Enqueuer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Enqueuer{client: asynq.NewClient(opt)}, nil
}

// Close closes the asynq client connection gracefully.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// Dispatch enqueues an email:send task for n
func (e *Enqueuer) Dispatch(ctx context.Context, n notify.Notification) error {
	task, err := NewSendEmailTask(n)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task)
	return err
}

// NewSendEmailTask builds an email task. It is retried up to 3 times with a
// 1-minute timeout and retained for 24 hours after completion.
func NewSendEmailTask(n notify.Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskSendEmail,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

// newReminderSweepTask is the periodic task registered with the scheduler.
// Empty payload: the handler works out the slot from the current time.
func newReminderSweepTask() *asynq.Task {
	return asynq.NewTask(
		TaskReminderSweep,
		nil,
		asynq.MaxRetry(1),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(30*time.Minute),
	)
}
