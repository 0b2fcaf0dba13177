package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/promise/internal/models"
	"github.com/jimdaga/promise/internal/notify"
	"github.com/jimdaga/promise/internal/store"
)

type captureMailer struct {
	delivered []notify.Notification
	err       error
}

func (c *captureMailer) Deliver(ctx context.Context, n notify.Notification) error {
	if c.err != nil {
		return c.err
	}
	c.delivered = append(c.delivered, n)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedPromise(t *testing.T, st *store.Memory, createdAt time.Time) (*models.User, *models.Promise) {
	t.Helper()
	u := &models.User{Name: "Ana", Email: "ana@x.com", ReminderTime: models.ReminderMorning}
	p := &models.Promise{Text: "Walk to work", Visibility: models.VisibilityPrivate}
	p.CreatedAt = createdAt
	require.NoError(t, st.CreateUserWithPromise(context.Background(), u, p))
	return u, p
}

func gentleTask(t *testing.T, n notify.Notification) *asynq.Task {
	t.Helper()
	task, err := NewSendEmailTask(n)
	require.NoError(t, err)
	return task
}

func TestNewSendEmailTask(t *testing.T) {
	n := notify.Notification{Template: notify.TemplateWelcome, To: "a@x.com", Name: "Ana"}

	task := gentleTask(t, n)

	assert.Equal(t, TaskSendEmail, task.Type())
	var decoded notify.Notification
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, n, decoded)
}

func TestHandleSendEmail_InvalidPayloadSkipsRetry(t *testing.T) {
	handler := handleSendEmail(discardLogger(), store.NewMemory(), &captureMailer{})

	err := handler(context.Background(), asynq.NewTask(TaskSendEmail, []byte("{not json")))

	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSendEmail_GentleReminderRefreshesCompletion(t *testing.T) {
	st := store.NewMemory()
	u, p := seedPromise(t, st, time.Now())
	mailer := &captureMailer{}
	handler := handleSendEmail(discardLogger(), st, mailer)

	n := notify.Notification{Template: notify.TemplateGentleReminder, To: u.Email, PromiseID: p.ID}

	require.NoError(t, handler(context.Background(), gentleTask(t, n)))
	require.Len(t, mailer.delivered, 1)
	assert.False(t, mailer.delivered[0].Completed)

	_, err := st.CompletePromise(context.Background(), u.ID, p.ID, time.Now())
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), gentleTask(t, n)))
	require.Len(t, mailer.delivered, 2)
	assert.True(t, mailer.delivered[1].Completed)
}

func TestHandleSendEmail_DeletedPromiseDropsReminder(t *testing.T) {
	st := store.NewMemory()
	u, p := seedPromise(t, st, time.Now())
	require.NoError(t, st.DeleteUser(context.Background(), u.ID))
	mailer := &captureMailer{}

	err := handleSendEmail(discardLogger(), st, mailer)(context.Background(),
		gentleTask(t, notify.Notification{Template: notify.TemplateGentleReminder, To: u.Email, PromiseID: p.ID}))

	require.NoError(t, err)
	assert.Empty(t, mailer.delivered)
}

func TestHandleSendEmail_DeliveryErrorIsRetryable(t *testing.T) {
	mailer := &captureMailer{err: errors.New("resend down")}

	err := handleSendEmail(discardLogger(), store.NewMemory(), mailer)(context.Background(),
		gentleTask(t, notify.Notification{Template: notify.TemplateWelcome, To: "a@x.com"}))

	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, err.Error(), "resend down")
}

func TestErrorHandler_RecordsDeadLetter(t *testing.T) {
	st := store.NewMemory()
	var main, dl bytes.Buffer
	handler := makeErrorHandler(slog.New(slog.NewJSONHandler(&main, nil)), slog.New(slog.NewJSONHandler(&dl, nil)), st)

	task := gentleTask(t, notify.Notification{Template: notify.TemplateWelcome, To: "a@x.com"})
	handler(context.Background(), task, fmt.Errorf("email delivery failed: %w", errors.New("timeout")))

	failures := st.NotificationFailures()
	require.Len(t, failures, 1)
	assert.Equal(t, TaskSendEmail, failures[0].TaskType)
	assert.Contains(t, failures[0].Error, "timeout")
	assert.JSONEq(t, string(task.Payload()), string(failures[0].Payload))
	assert.Contains(t, dl.String(), "Task moved to dead letter queue")
	assert.Contains(t, main.String(), "Task execution failed")
	assert.Contains(t, main.String(), "timeout")
}

func TestErrorHandler_InvalidPayloadStoredAsNull(t *testing.T) {
	st := store.NewMemory()
	handler := makeErrorHandler(discardLogger(), nil, st)

	handler(context.Background(), asynq.NewTask(TaskSendEmail, []byte("garbage")), fmt.Errorf("invalid payload: %w", asynq.SkipRetry))

	failures := st.NotificationFailures()
	require.Len(t, failures, 1)
	assert.Equal(t, "null", string(failures[0].Payload))
}

func TestNewMux_RegistersSweepOnlyWithSweeper(t *testing.T) {
	deps := Deps{Store: store.NewMemory(), Mailer: &captureMailer{}, Logger: discardLogger()}
	mux := newMux(deps)

	_, pattern := mux.Handler(asynq.NewTask(TaskReminderSweep, nil))
	assert.Empty(t, pattern)

	deps.Sweeper = NewSweeper(store.NewMemory(), &notify.Recorder{}, newMemClaimer(), discardLogger(), time.UTC, "", nil)
	_, pattern = newMux(deps).Handler(asynq.NewTask(TaskReminderSweep, nil))
	assert.Equal(t, TaskReminderSweep, pattern)
}
