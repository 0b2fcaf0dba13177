package database

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jimdaga/promise/internal/models"
	"github.com/jimdaga/promise/internal/store"
)

// DevUserEmail is the address of the seeded development user
const DevUserEmail = "dev@promise.local"

// seedStore is the subset of store.Store seeding writes through
type seedStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUserWithPromise(ctx context.Context, u *models.User, p *models.Promise) error
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
}

// SeedDevData populates the store with development test data.
// Idempotent: skips if the dev user already exists.
func SeedDevData(ctx context.Context, st seedStore, logger *slog.Logger) (*models.User, error) {
	existing, err := st.FindUserByEmail(ctx, DevUserEmail)
	if err == nil {
		logger.Info("Seed data already exists, skipping", "user_id", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	user := &models.User{
		Name:         "Dev User",
		Email:        DevUserEmail,
		ReminderTime: models.ReminderMorning,
	}
	promise := &models.Promise{
		Text:          "Bike to work instead of driving",
		IsEcoFriendly: true,
		Visibility:    models.VisibilityPrivate,
	}
	if err := st.CreateUserWithPromise(ctx, user, promise); err != nil {
		return nil, err
	}

	invitation := &models.Invitation{
		UserID:       user.ID,
		PartnerEmail: "partner@promise.local",
		PromiseText:  promise.Text,
		Status:       models.InvitationStatusPending,
	}
	if err := st.CreateInvitation(ctx, invitation); err != nil {
		return nil, err
	}

	logger.Info("Seeded dev data: 1 user, 1 promise, 1 pending invitation", "user_id", user.ID)
	return user, nil
}
