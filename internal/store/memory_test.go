package store

import (
	"context"
	"testing"
	"time"

	"github.com/jimdaga/promise/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, m *Memory, email string, created time.Time) (*models.User, *models.Promise) {
	t.Helper()
	u := &models.User{Name: "Ana", Email: email, ReminderTime: models.ReminderMorning}
	u.CreatedAt = created
	p := &models.Promise{Text: "read 10 pages", Visibility: models.VisibilityPrivate}
	p.CreatedAt = created
	require.NoError(t, m.CreateUserWithPromise(context.Background(), u, p))
	return u, p
}

func TestMemory_EmailIsNormalisedAndUnique(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	u, _ := seedUser(t, m, " Foo@Bar.com ", time.Now())

	assert.Equal(t, "foo@bar.com", u.Email)

	found, err := m.FindUserByEmail(ctx, "FOO@bar.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	err = m.CreateUserWithPromise(ctx, &models.User{Email: "foo@bar.com"}, &models.Promise{})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 1, m.CountUsers())
}

func TestMemory_LatestPromises(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	u, first := seedUser(t, m, "a@x.com", t0)

	second := &models.Promise{UserID: u.ID, Text: "second"}
	second.CreatedAt = t0.Add(25 * time.Hour)
	require.NoError(t, m.CreatePromise(ctx, second))

	changed, err := m.CompletePromise(ctx, u.ID, second.ID, t0.Add(26*time.Hour))
	require.NoError(t, err)
	require.True(t, changed)

	latest, err := m.LatestPromise(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID, "latest of any state")

	open, err := m.LatestOpenPromise(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, open.ID, "latest uncompleted")

	history, err := m.ListPromises(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID, "newest first")
}

func TestMemory_CompleteIsOneWay(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	u, p := seedUser(t, m, "a@x.com", time.Now())
	at := time.Now()

	changed, err := m.CompletePromise(ctx, u.ID, p.ID, at)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = m.CompletePromise(ctx, u.ID, p.ID, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := m.GetPromise(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, at.Equal(*got.CompletedAt), "completion timestamp is set exactly once")
}

func TestMemory_UpdateOpenPromisesSkipsCompleted(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	u, p := seedUser(t, m, "a@x.com", time.Now())

	_, err := m.CompletePromise(ctx, u.ID, p.ID, time.Now())
	require.NoError(t, err)

	text := "changed"
	n, err := m.UpdateOpenPromises(ctx, u.ID, PromiseUpdate{Text: &text})
	require.NoError(t, err)
	assert.Zero(t, n)

	got, _ := m.GetPromise(ctx, p.ID)
	assert.Equal(t, "read 10 pages", got.Text)
}

func TestMemory_DeleteUserCascades(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	u, p := seedUser(t, m, "a@x.com", time.Now())
	inv := &models.Invitation{UserID: u.ID, PartnerEmail: "b@x.com", Status: models.InvitationStatusPending}
	require.NoError(t, m.CreateInvitation(ctx, inv))

	require.NoError(t, m.DeleteUser(ctx, u.ID))

	_, err := m.GetPromise(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.FindInvitation(ctx, inv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.DeleteUser(ctx, u.ID), ErrNotFound)
}

func TestMemory_Partners(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	u, _ := seedUser(t, m, "a@x.com", time.Now())

	for _, email := range []string{"B@x.com", "c@x.com", "b@x.com "} {
		inv := &models.Invitation{UserID: u.ID, PartnerEmail: email, Status: models.InvitationStatusPending}
		require.NoError(t, m.CreateInvitation(ctx, inv))
		if email != "c@x.com" {
			_, err := m.ResolveInvitation(ctx, inv.ID, models.InvitationStatusAccepted, time.Now())
			require.NoError(t, err)
		}
	}

	emails, err := m.ListPartnerEmails(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@x.com"}, emails)

	n, err := m.DeletePartner(ctx, u.ID, "B@X.com")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
