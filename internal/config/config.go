package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	Env  string
	Port string

	DatabaseURL   string
	Store         string
	RedisURL      string
	RunMigrations bool
	SeedDevData   bool

	AppURL       string
	ResendAPIKey string
	MailFrom     string
	MailStubMode bool

	LogLevel          string
	LogFormat         string
	LogFile           string
	DeadLetterLogFile string

	ReminderSchedule  string
	ReminderTimezone  string
	WorkerConcurrency int
	EmbeddedWorker    bool
}

// LoadEnv loads a .env file from the working directory when present.
// Variables already set in the environment win.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn(".env file not loaded", "error", err)
	}
}

// Load reads configuration from environment variables
func Load() *Config {
	env := getEnvWithDefault("ENV", "development")
	apiKey := os.Getenv("RESEND_API_KEY")

	cfg := &Config{
		Env:  env,
		Port: getEnvWithDefault("PORT", "8080"),

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Store:         strings.ToLower(getEnvWithDefault("STORE", StorePostgres)),
		RedisURL:      os.Getenv("REDIS_URL"),
		RunMigrations: getBoolWithDefault("RUN_MIGRATIONS", true),
		SeedDevData:   getBoolWithDefault("SEED_DEV_DATA", false),

		AppURL:       strings.TrimRight(getEnvWithDefault("APP_URL", "http://localhost:8080"), "/"),
		ResendAPIKey: apiKey,
		MailFrom:     getEnvWithDefault("MAIL_FROM", "Promise <onboarding@resend.dev>"),
		MailStubMode: getBoolWithDefault("MAIL_STUB_MODE", apiKey == ""),

		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:         getEnvWithDefault("LOG_FORMAT", "auto"),
		LogFile:           os.Getenv("LOG_FILE"),
		DeadLetterLogFile: os.Getenv("DEAD_LETTER_LOG_FILE"),

		ReminderSchedule:  getEnvWithDefault("REMINDER_SCHEDULE", "0 * * * *"),
		ReminderTimezone:  getEnvWithDefault("REMINDER_TIMEZONE", "UTC"),
		WorkerConcurrency: getIntWithDefault("WORKER_CONCURRENCY", 5),
		EmbeddedWorker:    getBoolWithDefault("EMBEDDED_WORKER", env == "development"),
	}

	return cfg
}

// IsDevelopment reports whether ENV is development
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Location returns the reminder timezone. Call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReminderTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var errs []error

	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE=postgres"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store))
	}

	if _, err := cron.ParseStandard(c.ReminderSchedule); err != nil {
		errs = append(errs, fmt.Errorf("REMINDER_SCHEDULE %q is invalid: %w", c.ReminderSchedule, err))
	}
	if _, err := time.LoadLocation(c.ReminderTimezone); err != nil {
		errs = append(errs, fmt.Errorf("REMINDER_TIMEZONE %q is invalid: %w", c.ReminderTimezone, err))
	}
	if c.WorkerConcurrency < 1 {
		errs = append(errs, fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.WorkerConcurrency))
	}
	if !c.MailStubMode && c.ResendAPIKey == "" {
		errs = append(errs, errors.New("RESEND_API_KEY is required unless MAIL_STUB_MODE=true"))
	}

	return errors.Join(errs...)
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("Invalid boolean in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return b
}

func getIntWithDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}
