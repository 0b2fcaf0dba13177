package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/jimdaga/promise/internal/config"
	"github.com/jimdaga/promise/internal/database"
	"github.com/jimdaga/promise/internal/health"
	"github.com/jimdaga/promise/internal/logging"
	"github.com/jimdaga/promise/internal/mail"
	"github.com/jimdaga/promise/internal/notify"
	"github.com/jimdaga/promise/internal/store"
	"github.com/jimdaga/promise/internal/worker"
)

// app holds the process-wide collaborators shared by every command
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	deadLetter *slog.Logger

	db    *gorm.DB
	store store.Store
	redis *redis.Client

	closers []io.Closer
}

// newApp loads and validates configuration and sets up logging
func newApp() (*app, error) {
	if flagEnvFile {
		config.LoadEnv()
	}
	cfg := config.Load()
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger)

	deadLetter, dlCloser, err := logging.NewFileLogger(cfg.DeadLetterLogFile)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("failed to open dead letter log: %w", err)
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		deadLetter: deadLetter,
		closers:    []io.Closer{dlCloser, logCloser},
	}, nil
}

// openStore connects the configured store, running migrations on postgres when asked
func (a *app) openStore(migrate bool) error {
	if a.cfg.Store == config.StoreMemory {
		a.logger.Warn("Using in-memory store, data will not survive a restart")
		a.store = store.NewMemory()
		return nil
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	if migrate {
		if err := database.RunMigrations(db, a.logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	a.store = store.NewGorm(db)
	return nil
}

func (a *app) openDB() (*gorm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.Init(a.cfg.DatabaseURL, a.cfg.LogLevel == "debug")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	a.logger.Info("Database connected")
	return db, nil
}

// openRedis connects to Redis when REDIS_URL is set
func (a *app) openRedis(ctx context.Context) error {
	if a.cfg.RedisURL == "" {
		return nil
	}
	rdb, err := worker.NewRedisClient(a.cfg.RedisURL)
	if err != nil {
		return err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("failed to reach Redis: %w", err)
	}
	a.redis = rdb
	a.closers = append([]io.Closer{rdb}, a.closers...)
	return nil
}

// mailer builds the template registry and the Resend-backed delivery service
func (a *app) mailer() (*mail.Service, error) {
	registry, err := mail.DefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	client := mail.NewClient(a.cfg.ResendAPIKey, a.cfg.MailFrom, a.cfg.MailStubMode, a.logger)
	if client.StubMode() {
		a.logger.Warn("Email stub mode enabled, messages are logged instead of sent")
	}
	a.logger.Info("Email templates loaded", "count", registry.Count(), "templates", registry.Names())
	return mail.NewService(registry, client, a.logger), nil
}

// dispatcher enqueues to Asynq when Redis is configured, otherwise delivers inline
func (a *app) dispatcher(mailer notify.Deliverer) (notify.Dispatcher, error) {
	if a.cfg.RedisURL == "" {
		a.logger.Info("No REDIS_URL, delivering email inline")
		return notify.NewInline(mailer), nil
	}
	enq, err := worker.NewEnqueuer(a.cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append([]io.Closer{enq}, a.closers...)
	return enq, nil
}

// sweeper builds the reminder sweep, claiming slots in Redis when available
func (a *app) sweeper(d notify.Dispatcher) *worker.Sweeper {
	var claimer worker.Claimer = worker.NewMemoryClaimer()
	if a.redis != nil {
		claimer = worker.NewRedisClaimer(a.redis)
	}
	return worker.NewSweeper(a.store, d, claimer, a.logger, a.cfg.Location(), a.cfg.AppURL, nil)
}

func (a *app) workerDeps(mailer notify.Deliverer, sweeper *worker.Sweeper) worker.Deps {
	return worker.Deps{
		Store:      a.store,
		Mailer:     mailer,
		Sweeper:    sweeper,
		Logger:     a.logger,
		DeadLetter: a.deadLetter,
	}
}

func (a *app) readinessChecks() []health.Check {
	checks := []health.Check{{Name: "store", Ping: a.store.Ping}}
	if a.redis != nil {
		checks = append(checks, health.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return a.redis.Ping(ctx).Err() },
		})
	}
	return checks
}

// Close releases every resource, log files last
func (a *app) Close() {
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("Failed to close database", "error", err.Error())
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("Failed to close resource", "error", err.Error())
		}
	}
}
