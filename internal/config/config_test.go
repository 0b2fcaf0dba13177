package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"ENV", "PORT", "STORE", "RESEND_API_KEY", "MAIL_STUB_MODE", "EMBEDDED_WORKER", "WORKER_CONCURRENCY", "REMINDER_SCHEDULE", "APP_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.True(t, cfg.MailStubMode)
	assert.True(t, cfg.EmbeddedWorker)
	assert.Equal(t, 5, cfg.WorkerConcurrency)
	assert.Equal(t, "0 * * * *", cfg.ReminderSchedule)
	assert.Equal(t, "http://localhost:8080", cfg.AppURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("STORE", "Memory")
	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("WORKER_CONCURRENCY", "12")
	t.Setenv("APP_URL", "https://promise.example.com/")
	t.Setenv("EMBEDDED_WORKER", "not-a-bool")

	cfg := Load()

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.False(t, cfg.MailStubMode)
	assert.False(t, cfg.EmbeddedWorker)
	assert.Equal(t, 12, cfg.WorkerConcurrency)
	assert.Equal(t, "https://promise.example.com", cfg.AppURL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:             StoreMemory,
			ReminderSchedule:  "0 * * * *",
			ReminderTimezone:  "America/New_York",
			WorkerConcurrency: 5,
			MailStubMode:      true,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"postgres without url", func(c *Config) { c.Store = StorePostgres }, "DATABASE_URL"},
		{"unknown store", func(c *Config) { c.Store = "mongo" }, "STORE must be"},
		{"bad cron", func(c *Config) { c.ReminderSchedule = "every hour" }, "REMINDER_SCHEDULE"},
		{"bad timezone", func(c *Config) { c.ReminderTimezone = "Mars/Olympus" }, "REMINDER_TIMEZONE"},
		{"zero workers", func(c *Config) { c.WorkerConcurrency = 0 }, "WORKER_CONCURRENCY"},
		{"live mail without key", func(c *Config) { c.MailStubMode = false }, "RESEND_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := &Config{Store: "x", ReminderSchedule: "bad", ReminderTimezone: "UTC", WorkerConcurrency: 1, MailStubMode: true}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE")
	assert.Contains(t, err.Error(), "REMINDER_SCHEDULE")
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := &Config{ReminderTimezone: "nowhere"}
	assert.Equal(t, "UTC", cfg.Location().String())
}
