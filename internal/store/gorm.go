package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jimdaga/promise/internal/models"
	"gorm.io/gorm"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Gorm is the PostgreSQL-backed Store
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an open GORM connection
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// CreateUserWithPromise inserts a user and their first promise in one transaction
func (s *Gorm) CreateUserWithPromise(ctx context.Context, u *models.User, p *models.Promise) error {
	u.Email = models.NormalizeEmail(u.Email)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		p.UserID = u.ID
		return tx.Create(p).Error
	})
	return translate(err)
}

func (s *Gorm) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Gorm) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).Take(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Gorm) UpdateReminderTime(ctx context.Context, userID uuid.UUID, rt models.ReminderTime) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("reminder_time", string(rt))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser hard-deletes the user; promises and invitations go with it via ON DELETE CASCADE.
func (s *Gorm) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ?", userID).Delete(&models.User{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Gorm) ListUsersByReminderTime(ctx context.Context, rt models.ReminderTime) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Where("reminder_time = ?", string(rt)).Order("created_at").Find(&users).Error
	return users, translate(err)
}

func (s *Gorm) CreatePromise(ctx context.Context, p *models.Promise) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *Gorm) GetPromise(ctx context.Context, promiseID uuid.UUID) (*models.Promise, error) {
	var p models.Promise
	if err := s.db.WithContext(ctx).Where("id = ?", promiseID).Take(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Gorm) FindPromise(ctx context.Context, userID, promiseID uuid.UUID) (*models.Promise, error) {
	var p models.Promise
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", promiseID, userID).Take(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// LatestPromise returns the most recent promise in any state
func (s *Gorm) LatestPromise(ctx context.Context, userID uuid.UUID) (*models.Promise, error) {
	var p models.Promise
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(1).
		Take(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// LatestOpenPromise returns the most recent uncompleted promise
func (s *Gorm) LatestOpenPromise(ctx context.Context, userID uuid.UUID) (*models.Promise, error) {
	var p models.Promise
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND completed = ?", userID, false).
		Order("created_at DESC").
		Limit(1).
		Take(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// ListPromises returns the user's full history, newest first
func (s *Gorm) ListPromises(ctx context.Context, userID uuid.UUID) ([]models.Promise, error) {
	var promises []models.Promise
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&promises).Error
	return promises, translate(err)
}

// UpdateOpenPromises applies upd to the user's promises that have no completion timestamp
func (s *Gorm) UpdateOpenPromises(ctx context.Context, userID uuid.UUID, upd PromiseUpdate) (int64, error) {
	if upd.Empty() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Promise{}).
		Where("user_id = ? AND completed_at IS NULL", userID).
		Updates(upd.columns())
	return res.RowsAffected, translate(res.Error)
}

// CompletePromise flips completed and stamps completed_at in one conditional
// write. Returns false when the promise was already completed or does not exist.
func (s *Gorm) CompletePromise(ctx context.Context, userID, promiseID uuid.UUID, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Promise{}).
		Where("id = ? AND user_id = ? AND completed = ?", promiseID, userID, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Gorm) MarkCompletionReminderSent(ctx context.Context, promiseID uuid.UUID, at time.Time) error {
	return translate(s.db.WithContext(ctx).
		Model(&models.Promise{}).
		Where("id = ?", promiseID).
		Update("completion_reminder_sent_at", at).Error)
}

func (s *Gorm) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	inv.PartnerEmail = models.NormalizeEmail(inv.PartnerEmail)
	return translate(s.db.WithContext(ctx).Omit("User").Create(inv).Error)
}

// FindInvitation loads an invitation together with its inviter
func (s *Gorm) FindInvitation(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	var inv models.Invitation
	if err := s.db.WithContext(ctx).Preload("User").Where("id = ?", id).Take(&inv).Error; err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

// ResolveInvitation moves a pending invitation to status. Returns false when
// it was no longer pending.
func (s *Gorm) ResolveInvitation(ctx context.Context, id uuid.UUID, status string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, models.InvitationStatusPending).
		Updates(map[string]interface{}{
			"status":       status,
			"responded_at": at,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Gorm) ListInvitations(ctx context.Context, userID uuid.UUID) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&invitations).Error
	return invitations, translate(err)
}

// ListPartnerEmails returns the distinct recipients of the user's accepted invitations
func (s *Gorm) ListPartnerEmails(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var emails []string
	err := s.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Distinct("partner_email").
		Where("user_id = ? AND status = ?", userID, models.InvitationStatusAccepted).
		Order("partner_email").
		Pluck("partner_email", &emails).Error
	return emails, translate(err)
}

func (s *Gorm) DeletePartner(ctx context.Context, userID uuid.UUID, email string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND partner_email = ?", userID, models.NormalizeEmail(email)).
		Delete(&models.Invitation{})
	return res.RowsAffected, translate(res.Error)
}

func (s *Gorm) RecordNotificationFailure(ctx context.Context, f *models.NotificationFailure) error {
	return translate(s.db.WithContext(ctx).Create(f).Error)
}

func (s *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
