// Package store is the persistence gateway over the users, promises and
// accountability_invitations tables. It owns no business rules.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jimdaga/promise/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// PromiseUpdate carries the editable fields of an open promise. Nil fields are left untouched.
type PromiseUpdate struct {
	Text          *string
	TargetDate    *time.Time
	IsEcoFriendly *bool
	WitnessEmail  *string
	Visibility    *models.Visibility
}

// Empty reports whether the update would change nothing
func (u PromiseUpdate) Empty() bool {
	return u.Text == nil && u.TargetDate == nil && u.IsEcoFriendly == nil &&
		u.WitnessEmail == nil && u.Visibility == nil
}

func (u PromiseUpdate) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if u.Text != nil {
		cols["promise_text"] = *u.Text
	}
	if u.TargetDate != nil {
		cols["target_date"] = *u.TargetDate
	}
	if u.IsEcoFriendly != nil {
		cols["is_eco_friendly"] = *u.IsEcoFriendly
	}
	if u.WitnessEmail != nil {
		cols["witness_email"] = *u.WitnessEmail
	}
	if u.Visibility != nil {
		cols["visibility"] = string(*u.Visibility)
	}
	return cols
}

// Store is the full persistence surface. Services depend on narrower
// interfaces declared where they are used.
type Store interface {
	CreateUserWithPromise(ctx context.Context, u *models.User, p *models.Promise) error
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateReminderTime(ctx context.Context, userID uuid.UUID, rt models.ReminderTime) error
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	ListUsersByReminderTime(ctx context.Context, rt models.ReminderTime) ([]models.User, error)

	CreatePromise(ctx context.Context, p *models.Promise) error
	GetPromise(ctx context.Context, promiseID uuid.UUID) (*models.Promise, error)
	FindPromise(ctx context.Context, userID, promiseID uuid.UUID) (*models.Promise, error)
	LatestPromise(ctx context.Context, userID uuid.UUID) (*models.Promise, error)
	LatestOpenPromise(ctx context.Context, userID uuid.UUID) (*models.Promise, error)
	ListPromises(ctx context.Context, userID uuid.UUID) ([]models.Promise, error)
	UpdateOpenPromises(ctx context.Context, userID uuid.UUID, upd PromiseUpdate) (int64, error)
	CompletePromise(ctx context.Context, userID, promiseID uuid.UUID, at time.Time) (bool, error)
	MarkCompletionReminderSent(ctx context.Context, promiseID uuid.UUID, at time.Time) error

	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	FindInvitation(ctx context.Context, id uuid.UUID) (*models.Invitation, error)
	ResolveInvitation(ctx context.Context, id uuid.UUID, status string, at time.Time) (bool, error)
	ListInvitations(ctx context.Context, userID uuid.UUID) ([]models.Invitation, error)
	ListPartnerEmails(ctx context.Context, userID uuid.UUID) ([]string, error)
	DeletePartner(ctx context.Context, userID uuid.UUID, email string) (int64, error)

	RecordNotificationFailure(ctx context.Context, f *models.NotificationFailure) error
	Ping(ctx context.Context) error
}
