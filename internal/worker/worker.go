package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"

	"github.com/jimdaga/promise/internal/config"
	"github.com/jimdaga/promise/internal/models"
	"github.com/jimdaga/promise/internal/notify"
	"github.com/jimdaga/promise/internal/store"
)

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// promiseReader is what the email handler needs to refresh a reminder
type promiseReader interface {
	GetPromise(ctx context.Context, promiseID uuid.UUID) (*models.Promise, error)
}

// failureRecorder persists dead letters
type failureRecorder interface {
	RecordNotificationFailure(ctx context.Context, f *models.NotificationFailure) error
}

// Deps are the collaborators task handlers use
type Deps struct {
	Store      store.Store
	Mailer     notify.Deliverer
	Sweeper    *Sweeper
	Logger     *slog.Logger
	DeadLetter *slog.Logger
}

// Run starts the Asynq worker server and blocks until shutdown signal.
// Use this for standalone worker mode.
func Run(cfg *config.Config, deps Deps) error {
	srv, mux, err := newServer(cfg, deps)
	if err != nil {
		return err
	}
	// Run blocks and handles its own signal interception
	return srv.Run(mux)
}

// Start starts the Asynq worker in non-blocking mode and returns a stop function.
// Use this for embedded mode so the caller can coordinate shutdown.
func Start(cfg *config.Config, deps Deps) (stop func(), err error) {
	srv, mux, err := newServer(cfg, deps)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, deps Deps) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := deps.Logger
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     cfg.WorkerConcurrency,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger, deps.DeadLetter, deps.Store)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	logger.Info("Worker starting", "concurrency", cfg.WorkerConcurrency)
	return srv, newMux(deps), nil
}

func newMux(deps Deps) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSendEmail, handleSendEmail(deps.Logger, deps.Store, deps.Mailer))
	if deps.Sweeper != nil {
		mux.HandleFunc(TaskReminderSweep, handleReminderSweep(deps.Logger, deps.Sweeper))
	}
	return mux
}

// handleSendEmail renders and sends one notification. Gentle reminders are
// re-checked against the promise so a completion that happened after
// enqueueing still suppresses them.
func handleSendEmail(logger *slog.Logger, promises promiseReader, mailer notify.Deliverer) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var n notify.Notification
		if err := json.Unmarshal(task.Payload(), &n); err != nil {
			// Invalid payload - don't retry
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		logger.Info("Processing email:send task", "template", n.Template, "to", n.To)

		if n.Template == notify.TemplateGentleReminder && n.PromiseID != uuid.Nil {
			p, err := promises.GetPromise(ctx, n.PromiseID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					logger.Info("Promise gone, dropping reminder", "promise_id", n.PromiseID)
					return nil
				}
				// Database error - retryable
				return fmt.Errorf("failed to fetch promise: %w", err)
			}
			n.Completed = !p.IsOpen()
		}

		if err := mailer.Deliver(ctx, n); err != nil {
			return fmt.Errorf("email delivery failed: %w", err)
		}
		return nil
	}
}

func handleReminderSweep(logger *slog.Logger, sweeper *Sweeper) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		sent, err := sweeper.Sweep(ctx)
		if err != nil {
			return err
		}
		logger.Debug("Processed reminders:sweep task", "dispatched", sent)
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
// When retries are exhausted the task is written to the dead-letter log and table.
func makeErrorHandler(logger, deadLetter *slog.Logger, failures failureRecorder) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		// Final failure, or a failure asynq will not retry
		if retried < maxRetry && !errors.Is(err, asynq.SkipRetry) {
			return
		}

		if deadLetter != nil {
			deadLetter.Error(
				"Task moved to dead letter queue",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
				"error", err.Error(),
				"retries", retried,
			)
		}

		if failures == nil {
			return
		}
		payload := task.Payload()
		if !json.Valid(payload) {
			payload = []byte("null")
		}
		record := &models.NotificationFailure{
			TaskType: task.Type(),
			Payload:  datatypes.JSON(payload),
			Error:    err.Error(),
			Retries:  retried,
		}
		if err := failures.RecordNotificationFailure(context.WithoutCancel(ctx), record); err != nil {
			logger.Error("Failed to record notification failure", "task_type", task.Type(), "error", err.Error())
		}
	}
}
