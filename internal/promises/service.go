// Package promises implements the promise lifecycle: subscribing, creating
// promises inside the 24-hour window rules, editing, completing and deleting.
package promises

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jimdaga/promise/internal/apperr"
	"github.com/jimdaga/promise/internal/models"
	"github.com/jimdaga/promise/internal/notify"
	"github.com/jimdaga/promise/internal/store"
	"github.com/jimdaga/promise/internal/window"
)

// Reminder types accepted by SendReminder
const (
	ReminderGentle     = "gentle"
	ReminderCompletion = "completion"
)

// Service runs promise lifecycle operations against a store
type Service struct {
	store      store.Store
	dispatcher notify.Dispatcher
	logger     *slog.Logger
	appURL     string
	now        func() time.Time
}

// NewService creates a promise service. now defaults to time.Now.
func NewService(st store.Store, d notify.Dispatcher, logger *slog.Logger, appURL string, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, dispatcher: d, logger: logger, appURL: appURL, now: now}
}

// SubscribeInput is either a first-time signup (Name, Email) or a new
// promise for an existing user (UserID).
type SubscribeInput struct {
	UserID        *uuid.UUID
	Name          string
	Email         string
	Promise       string
	IsEcoFriendly bool
	ReminderTime  string
}

// SubscribeResult identifies what was written
type SubscribeResult struct {
	UserID    uuid.UUID
	PromiseID uuid.UUID
	NewUser   bool
}

// CreateInput carries the fields of a new promise for an existing user
type CreateInput struct {
	Text          string
	TargetDate    string
	IsEcoFriendly bool
	WitnessEmail  string
	Visibility    string
}

// State is the dashboard view of a user
type State struct {
	UserID            uuid.UUID           `json:"userId"`
	Name              string              `json:"name"`
	Email             string              `json:"email"`
	ReminderTime      models.ReminderTime `json:"reminder_time"`
	CurrentPromise    *models.Promise     `json:"current_promise"`
	MostRecentPromise *models.Promise     `json:"most_recent_promise"`
	TimeLeft          int64               `json:"timeLeft"`
	CanCreateNew      bool                `json:"canCreateNew"`
	TimeUntilEligible *window.Wait        `json:"timeUntilEligible"`
}

// HistoryEntry is one row of a user's promise history
type HistoryEntry struct {
	Date        time.Time `json:"date"`
	Completed   bool      `json:"completed"`
	PromiseText string    `json:"promise_text"`
}

// UpdateInput is a partial update. Nil fields are left untouched.
type UpdateInput struct {
	ReminderTime  *string
	Text          *string
	TargetDate    *string
	IsEcoFriendly *bool
	WitnessEmail  *string
	Visibility    *string
	Completed     *bool
}

// UpdateResult reports what an update touched
type UpdateResult struct {
	PromisesUpdated int64
	Completion      *CompleteResult
}

// CompleteResult reports the outcome of Complete. Changed is false when the
// promise was already completed or there was nothing open to complete.
type CompleteResult struct {
	Changed   bool
	PromiseID uuid.UUID
	Notified  []string
}

// Subscribe signs up a new user with their first promise, or adds a promise
// for an existing user when UserID is set.
func (s *Service) Subscribe(ctx context.Context, in SubscribeInput) (*SubscribeResult, error) {
	if in.UserID != nil {
		p, err := s.CreateForUser(ctx, *in.UserID, CreateInput{Text: in.Promise, IsEcoFriendly: in.IsEcoFriendly})
		if err != nil {
			return nil, err
		}
		return &SubscribeResult{UserID: *in.UserID, PromiseID: p.ID}, nil
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	email := models.NormalizeEmail(in.Email)
	if !models.ValidEmail(email) {
		return nil, apperr.Validation("a valid email is required")
	}
	text, err := validateText(in.Promise)
	if err != nil {
		return nil, err
	}
	reminder := models.ReminderMorning
	if in.ReminderTime != "" {
		reminder = models.ReminderTime(in.ReminderTime)
		if !reminder.Valid() {
			return nil, apperr.Validation("reminderTime must be morning, midday or evening")
		}
	}

	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return nil, userExists()
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("Failed to process subscription", err)
	}

	now := s.now()
	user := &models.User{Name: name, Email: email, ReminderTime: reminder}
	user.CreatedAt = now
	promise := &models.Promise{Text: text, IsEcoFriendly: in.IsEcoFriendly, Visibility: models.VisibilityPrivate}
	promise.CreatedAt = now

	if err := s.store.CreateUserWithPromise(ctx, user, promise); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, userExists()
		}
		return nil, apperr.Internal("Failed to process subscription", err)
	}

	s.logger.InfoContext(ctx, "User subscribed", "user_id", user.ID, "promise_id", promise.ID)

	notify.Send(ctx, s.logger, s.dispatcher, notify.Notification{
		Template:     notify.TemplateWelcome,
		To:           user.Email,
		Name:         user.Name,
		PromiseText:  promise.Text,
		DashboardURL: notify.DashboardURL(s.appURL, user.ID),
		PromiseID:    promise.ID,
	})

	return &SubscribeResult{UserID: user.ID, PromiseID: promise.ID, NewUser: true}, nil
}

// CreateForUser writes a new promise for an existing user. The 24-hour
// window since the user's most recent promise must have passed.
func (s *Service) CreateForUser(ctx context.Context, userID uuid.UUID, in CreateInput) (*models.Promise, error) {
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	text, err := validateText(in.Text)
	if err != nil {
		return nil, err
	}

	p := &models.Promise{
		UserID:        userID,
		Text:          text,
		IsEcoFriendly: in.IsEcoFriendly,
		Visibility:    models.VisibilityPrivate,
	}
	p.CreatedAt = now

	if in.TargetDate != "" {
		target, err := ParseTargetDate(in.TargetDate, now)
		if err != nil {
			return nil, err
		}
		p.TargetDate = &target
	}
	if in.WitnessEmail != "" {
		witness, err := validateWitness(in.WitnessEmail)
		if err != nil {
			return nil, err
		}
		p.WitnessEmail = &witness
	}
	if in.Visibility != "" {
		v := models.Visibility(in.Visibility)
		if !v.Valid() {
			return nil, apperr.Validation("visibility must be private, witness or public")
		}
		p.Visibility = v
	}

	latest, err := s.latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wait := window.TimeUntilEligible(latest, now); wait != nil {
		e := apperr.Conflict(apperr.CodePromiseWindow,
			"You can make a new promise in "+wait.String())
		e.Details = map[string]any{"timeUntilEligible": wait}
		return nil, e
	}

	if err := s.store.CreatePromise(ctx, p); err != nil {
		return nil, apperr.Internal("Failed to create promise", err)
	}

	s.logger.InfoContext(ctx, "Promise created", "user_id", userID, "promise_id", p.ID)
	return p, nil
}

// State returns the dashboard view: profile, current promise, eligibility
// and the milliseconds left on the current promise.
func (s *Service) State(ctx context.Context, userID uuid.UUID) (*State, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	latest, err := s.latest(ctx, userID)
	if err != nil {
		return nil, err
	}

	current, err := s.store.LatestOpenPromise(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Internal("Failed to load promise", err)
		}
		current = latest
	}

	state := &State{
		UserID:            user.ID,
		Name:              user.Name,
		Email:             user.Email,
		ReminderTime:      user.ReminderTime,
		CurrentPromise:    current,
		MostRecentPromise: latest,
		CanCreateNew:      window.CanCreateNew(latest, now),
		TimeUntilEligible: window.TimeUntilEligible(latest, now),
	}
	if current != nil && current.IsOpen() {
		state.TimeLeft = window.RemainingTime(current, now).Milliseconds()
	}
	return state, nil
}

// History lists every promise of the user, newest first
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]HistoryEntry, error) {
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, err
	}

	promises, err := s.store.ListPromises(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to load history", err)
	}

	entries := make([]HistoryEntry, 0, len(promises))
	for _, p := range promises {
		entries = append(entries, HistoryEntry{Date: p.CreatedAt, Completed: p.Completed, PromiseText: p.Text})
	}
	return entries, nil
}

// Update applies a partial update. Promise fields only touch promises that
// are still open. Completed=true is routed to Complete; completion cannot be undone.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, in UpdateInput) (*UpdateResult, error) {
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, err
	}

	if in.Completed != nil && !*in.Completed {
		return nil, apperr.Validation("a completed promise cannot be reopened")
	}

	var upd store.PromiseUpdate
	if in.Text != nil {
		text, err := validateText(*in.Text)
		if err != nil {
			return nil, err
		}
		upd.Text = &text
	}
	if in.TargetDate != nil {
		target, err := ParseTargetDate(*in.TargetDate, s.now())
		if err != nil {
			return nil, err
		}
		upd.TargetDate = &target
	}
	upd.IsEcoFriendly = in.IsEcoFriendly
	if in.WitnessEmail != nil {
		witness := ""
		if strings.TrimSpace(*in.WitnessEmail) != "" {
			var err error
			if witness, err = validateWitness(*in.WitnessEmail); err != nil {
				return nil, err
			}
		}
		upd.WitnessEmail = &witness
	}
	if in.Visibility != nil {
		v := models.Visibility(*in.Visibility)
		if !v.Valid() {
			return nil, apperr.Validation("visibility must be private, witness or public")
		}
		upd.Visibility = &v
	}

	var reminder *models.ReminderTime
	if in.ReminderTime != nil {
		rt := models.ReminderTime(*in.ReminderTime)
		if !rt.Valid() {
			return nil, apperr.Validation("reminder_time must be morning, midday or evening")
		}
		reminder = &rt
	}

	if reminder == nil && upd.Empty() && in.Completed == nil {
		return nil, apperr.Validation("no fields to update")
	}

	result := &UpdateResult{}
	if reminder != nil {
		if err := s.store.UpdateReminderTime(ctx, userID, *reminder); err != nil {
			return nil, apperr.Internal("Failed to update reminder time", err)
		}
	}
	if !upd.Empty() {
		n, err := s.store.UpdateOpenPromises(ctx, userID, upd)
		if err != nil {
			return nil, apperr.Internal("Failed to update promise", err)
		}
		result.PromisesUpdated = n
	}
	if in.Completed != nil {
		res, err := s.Complete(ctx, userID, nil)
		if err != nil {
			return nil, err
		}
		result.Completion = res
	}
	return result, nil
}

// Complete marks a promise completed. With a nil promiseID the current open
// promise is used. Completing twice is a successful no-op that sends nothing;
// a real transition notifies the witness and every accepted partner.
func (s *Service) Complete(ctx context.Context, userID uuid.UUID, promiseID *uuid.UUID) (*CompleteResult, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var p *models.Promise
	if promiseID == nil {
		p, err = s.store.LatestOpenPromise(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return &CompleteResult{}, nil
		}
	} else {
		p, err = s.store.FindPromise(ctx, userID, *promiseID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Promise")
		}
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load promise", err)
	}

	changed, err := s.store.CompletePromise(ctx, userID, p.ID, s.now())
	if err != nil {
		return nil, apperr.Internal("Failed to mark promise as completed", err)
	}
	result := &CompleteResult{Changed: changed, PromiseID: p.ID}
	if !changed {
		return result, nil
	}

	s.logger.InfoContext(ctx, "Promise completed", "user_id", userID, "promise_id", p.ID)
	result.Notified = s.notifyCompletion(ctx, user, p)
	return result, nil
}

func (s *Service) notifyCompletion(ctx context.Context, user *models.User, p *models.Promise) []string {
	var notified []string

	if p.WitnessEmail != nil && *p.WitnessEmail != "" {
		if notify.Send(ctx, s.logger, s.dispatcher, notify.Notification{
			Template:    notify.TemplateWitnessCompleted,
			To:          *p.WitnessEmail,
			Name:        user.Name,
			PromiseText: p.Text,
			PromiseID:   p.ID,
			Completed:   true,
		}) {
			notified = append(notified, *p.WitnessEmail)
		}
	}

	partners, err := s.store.ListPartnerEmails(ctx, user.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load accountability partners", "user_id", user.ID, "error", err.Error())
		return notified
	}
	for _, email := range partners {
		if notify.Send(ctx, s.logger, s.dispatcher, notify.Notification{
			Template:    notify.TemplatePartnerCompleted,
			To:          email,
			Name:        user.Name,
			PromiseText: p.Text,
			PromiseID:   p.ID,
			Completed:   true,
		}) {
			notified = append(notified, email)
		}
	}
	return notified
}

// Witness returns the witness email of the current promise, if any
func (s *Service) Witness(ctx context.Context, userID uuid.UUID) (string, error) {
	p, err := s.current(ctx, userID)
	if err != nil || p == nil || p.WitnessEmail == nil {
		return "", err
	}
	return *p.WitnessEmail, nil
}

// SetWitness sets the witness on the open promise. An empty email clears it.
func (s *Service) SetWitness(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	witness := ""
	if strings.TrimSpace(email) != "" {
		var err error
		if witness, err = validateWitness(email); err != nil {
			return "", err
		}
	}
	if err := s.updateOpen(ctx, userID, store.PromiseUpdate{WitnessEmail: &witness}); err != nil {
		return "", err
	}
	return witness, nil
}

// Visibility returns the visibility of the current promise
func (s *Service) Visibility(ctx context.Context, userID uuid.UUID) (models.Visibility, error) {
	p, err := s.current(ctx, userID)
	if err != nil {
		return "", err
	}
	if p == nil || p.Visibility == "" {
		return models.VisibilityPrivate, nil
	}
	return p.Visibility, nil
}

// SetVisibility sets the visibility of the open promise
func (s *Service) SetVisibility(ctx context.Context, userID uuid.UUID, visibility string) (models.Visibility, error) {
	v := models.Visibility(visibility)
	if !v.Valid() {
		return "", apperr.Validation("visibility must be private, witness or public")
	}
	if err := s.updateOpen(ctx, userID, store.PromiseUpdate{Visibility: &v}); err != nil {
		return "", err
	}
	return v, nil
}

// SendReminder emails the user about their open promise. Returns the message
// shown to the caller.
func (s *Service) SendReminder(ctx context.Context, userID uuid.UUID, reminderType string) (string, error) {
	var template string
	switch reminderType {
	case ReminderGentle:
		template = notify.TemplateGentleReminder
	case ReminderCompletion:
		template = notify.TemplateCompletionReminder
	default:
		return "", apperr.Validation("reminderType must be gentle or completion")
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return "", err
	}

	p, err := s.store.LatestOpenPromise(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "No active promise to remind about", nil
	}
	if err != nil {
		return "", apperr.Internal("Failed to fetch promise", err)
	}

	notify.Send(ctx, s.logger, s.dispatcher, notify.Notification{
		Template:     template,
		To:           user.Email,
		Name:         user.Name,
		PromiseText:  p.Text,
		DashboardURL: notify.DashboardURL(s.appURL, user.ID),
		Completed:    p.Completed,
		PromiseID:    p.ID,
	})

	if reminderType == ReminderCompletion {
		if err := s.store.MarkCompletionReminderSent(ctx, p.ID, s.now()); err != nil {
			s.logger.ErrorContext(ctx, "Failed to stamp completion reminder", "promise_id", p.ID, "error", err.Error())
		}
	}

	return reminderType + " reminder sent successfully", nil
}

// Login looks a user up by email
func (s *Service) Login(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, apperr.Internal("Failed to look up user", err)
	}
	return user, nil
}

// Delete removes the user together with their promises and invitations
func (s *Service) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("User")
		}
		return apperr.Internal("Failed to delete account", err)
	}
	s.logger.InfoContext(ctx, "User deleted", "user_id", userID)
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

// latest returns the most recent promise of any state, or nil
func (s *Service) latest(ctx context.Context, userID uuid.UUID) (*models.Promise, error) {
	p, err := s.store.LatestPromise(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal("Failed to load promise", err)
	}
	return p, nil
}

// current returns the open promise, else the most recent one, else nil
func (s *Service) current(ctx context.Context, userID uuid.UUID) (*models.Promise, error) {
	if _, err := s.findUser(ctx, userID); err != nil {
		return nil, err
	}
	p, err := s.store.LatestOpenPromise(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("Failed to load promise", err)
	}
	return s.latest(ctx, userID)
}

func (s *Service) updateOpen(ctx context.Context, userID uuid.UUID, upd store.PromiseUpdate) error {
	if _, err := s.findUser(ctx, userID); err != nil {
		return err
	}
	n, err := s.store.UpdateOpenPromises(ctx, userID, upd)
	if err != nil {
		return apperr.Internal("Failed to update promise", err)
	}
	if n == 0 {
		return apperr.NotFound("Open promise")
	}
	return nil
}

func validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < models.MinPromiseTextLen || n > models.MaxPromiseTextLen {
		return "", apperr.Validation("promise must be between %d and %d characters", models.MinPromiseTextLen, models.MaxPromiseTextLen)
	}
	return text, nil
}

func validateWitness(email string) (string, error) {
	email = models.NormalizeEmail(email)
	if !models.ValidEmail(email) {
		return "", apperr.Validation("witness email is invalid")
	}
	return email, nil
}

func userExists() error {
	return apperr.Conflict(apperr.CodeUserExists,
		"An account with this email already exists. Please log in to continue with your existing account.")
}
