package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"github.com/jimdaga/promise/internal/config"
)

// StartScheduler creates and starts an Asynq Scheduler for the reminder sweep.
// Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config, logger *slog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: cfg.Location(),
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	entryID, err := scheduler.Register(cfg.ReminderSchedule, newReminderSweepTask())
	if err != nil {
		return nil, fmt.Errorf("failed to register reminder schedule: %w", err)
	}

	// Start scheduler (non-blocking)
	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info(
		"Scheduler started",
		"schedule", cfg.ReminderSchedule,
		"timezone", cfg.ReminderTimezone,
		"entry_id", entryID,
	)

	return func() { scheduler.Shutdown() }, nil
}

// StartLocalScheduler runs the reminder sweep in process on cfg.ReminderSchedule.
// Used when no Redis is configured and the Asynq scheduler is unavailable.
func StartLocalScheduler(cfg *config.Config, sweeper *Sweeper, logger *slog.Logger) (stop func(), err error) {
	c := cron.New(cron.WithLocation(cfg.Location()))
	entryID, err := c.AddFunc(cfg.ReminderSchedule, func() {
		if _, err := sweeper.Sweep(context.Background()); err != nil {
			logger.Error("Reminder sweep failed", "error", err.Error())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register reminder schedule: %w", err)
	}
	c.Start()

	logger.Info(
		"Local scheduler started",
		"schedule", cfg.ReminderSchedule,
		"timezone", cfg.ReminderTimezone,
		"entry_id", int(entryID),
	)

	return func() { <-c.Stop().Done() }, nil
}
