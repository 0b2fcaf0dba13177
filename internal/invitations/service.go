// Package invitations implements the accountability partner flow. An
// invitation moves from pending to accepted or declined exactly once.
package invitations

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jimdaga/promise/internal/apperr"
	"github.com/jimdaga/promise/internal/models"
	"github.com/jimdaga/promise/internal/notify"
	"github.com/jimdaga/promise/internal/store"
)

// Actions offered on a pending invitation
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

type invitationStore interface {
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	LatestOpenPromise(ctx context.Context, userID uuid.UUID) (*models.Promise, error)
	LatestPromise(ctx context.Context, userID uuid.UUID) (*models.Promise, error)
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	FindInvitation(ctx context.Context, id uuid.UUID) (*models.Invitation, error)
	ResolveInvitation(ctx context.Context, id uuid.UUID, status string, at time.Time) (bool, error)
	ListInvitations(ctx context.Context, userID uuid.UUID) ([]models.Invitation, error)
	ListPartnerEmails(ctx context.Context, userID uuid.UUID) ([]string, error)
	DeletePartner(ctx context.Context, userID uuid.UUID, email string) (int64, error)
}

// Service runs the invitation workflow
type Service struct {
	store      invitationStore
	dispatcher notify.Dispatcher
	logger     *slog.Logger
	appURL     string
	now        func() time.Time
}

// NewService creates an invitation service. now defaults to time.Now.
func NewService(st invitationStore, d notify.Dispatcher, logger *slog.Logger, appURL string, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, dispatcher: d, logger: logger, appURL: appURL, now: now}
}

// View is what the partner sees when opening an invitation link
type View struct {
	Invitation   *models.Invitation `json:"invitation"`
	InviterName  string             `json:"inviterName"`
	InviterEmail string             `json:"inviterEmail"`
	Resolved     bool               `json:"resolved"`
	Actions      []string           `json:"actions"`
}

// AcceptURL is the link a partner follows to accept
func AcceptURL(appURL string, id uuid.UUID) string {
	return appURL + "/invitation/" + id.String() + "/accept"
}

// DeclineURL is the link a partner follows to decline
func DeclineURL(appURL string, id uuid.UUID) string {
	return appURL + "/invitation/" + id.String() + "/decline"
}

// Create stores a pending invitation and emails the partner. An empty
// promiseText falls back to the inviter's current promise.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, partnerEmail, promiseText string) (*models.Invitation, error) {
	inviter, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	partnerEmail = models.NormalizeEmail(partnerEmail)
	if !models.ValidEmail(partnerEmail) {
		return nil, apperr.Validation("partner email is invalid")
	}
	if partnerEmail == inviter.Email {
		return nil, apperr.Validation("you cannot invite yourself")
	}

	promiseText = strings.TrimSpace(promiseText)
	if promiseText == "" {
		promiseText, err = s.currentPromiseText(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	inv := &models.Invitation{
		Base:         models.Base{ID: uuid.New(), CreatedAt: s.now()},
		UserID:       userID,
		PartnerEmail: partnerEmail,
		PromiseText:  promiseText,
		Status:       models.InvitationStatusPending,
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return nil, apperr.Internal("Failed to create invitation", err)
	}
	s.logger.InfoContext(ctx, "Invitation created", "user_id", userID, "invitation_id", inv.ID)

	notify.Send(ctx, s.logger, s.dispatcher, notify.Notification{
		Template:      notify.TemplatePartnerInvitation,
		To:            inv.PartnerEmail,
		PromiseText:   inv.PromiseText,
		InviterName:   inviter.Name,
		InviterEmail:  inviter.Email,
		InvitationURL: AcceptURL(s.appURL, inv.ID),
		DeclineURL:    DeclineURL(s.appURL, inv.ID),
	})
	return inv, nil
}

// List returns the user's invitations, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Invitation, error) {
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, err
	}
	invitations, err := s.store.ListInvitations(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to load invitations", err)
	}
	if invitations == nil {
		invitations = []models.Invitation{}
	}
	return invitations, nil
}

// View loads an invitation for display. Resolved invitations carry no actions.
func (s *Service) View(ctx context.Context, id uuid.UUID) (*View, error) {
	inv, err := s.store.FindInvitation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Invitation")
		}
		return nil, apperr.Internal("Failed to load invitation", err)
	}
	return newView(inv), nil
}

// Accept moves a pending invitation to accepted and tells the inviter
func (s *Service) Accept(ctx context.Context, id uuid.UUID) (*View, error) {
	return s.resolve(ctx, id, models.InvitationStatusAccepted)
}

// Decline moves a pending invitation to declined and tells the inviter
func (s *Service) Decline(ctx context.Context, id uuid.UUID) (*View, error) {
	return s.resolve(ctx, id, models.InvitationStatusDeclined)
}

func (s *Service) resolve(ctx context.Context, id uuid.UUID, status string) (*View, error) {
	changed, err := s.store.ResolveInvitation(ctx, id, status, s.now())
	if err != nil {
		return nil, apperr.Internal("Failed to update invitation", err)
	}

	view, err := s.View(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, &apperr.Error{
			Kind:    apperr.KindConflict,
			Code:    apperr.CodeInvitationResolved,
			Message: "This invitation has already been " + view.Invitation.Status,
			Details: map[string]any{"status": view.Invitation.Status},
		}
	}
	s.logger.InfoContext(ctx, "Invitation resolved", "invitation_id", id, "status", status)

	if view.InviterEmail != "" {
		template := notify.TemplateInvitationAccepted
		if status == models.InvitationStatusDeclined {
			template = notify.TemplateInvitationDeclined
		}
		notify.Send(ctx, s.logger, s.dispatcher, notify.Notification{
			Template:     template,
			To:           view.InviterEmail,
			Name:         view.InviterName,
			PartnerEmail: view.Invitation.PartnerEmail,
			DashboardURL: notify.DashboardURL(s.appURL, view.Invitation.UserID),
		})
	}
	return view, nil
}

// Partners lists the accepted partner emails of a user
func (s *Service) Partners(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, err
	}
	emails, err := s.store.ListPartnerEmails(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to load accountability partners", err)
	}
	if emails == nil {
		emails = []string{}
	}
	return emails, nil
}

// AddPartner invites email using the user's current promise
func (s *Service) AddPartner(ctx context.Context, userID uuid.UUID, email string) (*models.Invitation, error) {
	return s.Create(ctx, userID, email, "")
}

// RemovePartner deletes every invitation the user sent to email
func (s *Service) RemovePartner(ctx context.Context, userID uuid.UUID, email string) error {
	if _, err := s.findUser(ctx, userID); err != nil {
		return err
	}
	n, err := s.store.DeletePartner(ctx, userID, email)
	if err != nil {
		return apperr.Internal("Failed to remove accountability partner", err)
	}
	if n == 0 {
		return apperr.NotFound("Accountability partner")
	}
	s.logger.InfoContext(ctx, "Accountability partner removed", "user_id", userID, "invitations", n)
	return nil
}

func (s *Service) findUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, apperr.Internal("Failed to load user", err)
	}
	return user, nil
}

func (s *Service) currentPromiseText(ctx context.Context, userID uuid.UUID) (string, error) {
	p, err := s.store.LatestOpenPromise(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		p, err = s.store.LatestPromise(ctx, userID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.Validation("make a promise before inviting a partner")
	}
	if err != nil {
		return "", apperr.Internal("Failed to load promise", err)
	}
	return p.Text, nil
}

func newView(inv *models.Invitation) *View {
	view := &View{
		Resolved: inv.Resolved(),
		Actions:  []string{},
	}
	if inv.User != nil {
		view.InviterName = inv.User.Name
		view.InviterEmail = inv.User.Email
	}
	if !view.Resolved {
		view.Actions = []string{ActionAccept, ActionDecline}
	}
	stripped := *inv
	stripped.User = nil
	view.Invitation = &stripped
	return view
}
