package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jimdaga/promise/internal/models"
)

// Memory is an in-process Store used for local development (STORE=memory)
// and by service tests. It mirrors the Gorm semantics: normalised unique
// emails, cascading user deletes and conditional one-way transitions.
type Memory struct {
	mu          sync.Mutex
	users       map[uuid.UUID]models.User
	promises    map[uuid.UUID]models.Promise
	invitations map[uuid.UUID]models.Invitation
	failures    []models.NotificationFailure
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		users:       make(map[uuid.UUID]models.User),
		promises:    make(map[uuid.UUID]models.Promise),
		invitations: make(map[uuid.UUID]models.Invitation),
	}
}

func stamp(b *models.Base) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	b.UpdatedAt = b.CreatedAt
}

func (m *Memory) CreateUserWithPromise(ctx context.Context, u *models.User, p *models.Promise) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = models.NormalizeEmail(u.Email)
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	stamp(&u.Base)
	m.users[u.ID] = *u

	p.UserID = u.ID
	stamp(&p.Base)
	m.promises[p.ID] = *p
	return nil
}

func (m *Memory) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = models.NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateReminderTime(ctx context.Context, userID uuid.UUID, rt models.ReminderTime) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.ReminderTime = rt
	u.UpdatedAt = time.Now()
	m.users[userID] = u
	return nil
}

func (m *Memory) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return ErrNotFound
	}
	delete(m.users, userID)
	for id, p := range m.promises {
		if p.UserID == userID {
			delete(m.promises, id)
		}
	}
	for id, inv := range m.invitations {
		if inv.UserID == userID {
			delete(m.invitations, id)
		}
	}
	return nil
}

func (m *Memory) ListUsersByReminderTime(ctx context.Context, rt models.ReminderTime) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var users []models.User
	for _, u := range m.users {
		if u.ReminderTime == rt {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (m *Memory) CreatePromise(ctx context.Context, p *models.Promise) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[p.UserID]; !ok {
		return ErrNotFound
	}
	stamp(&p.Base)
	m.promises[p.ID] = *p
	return nil
}

func (m *Memory) GetPromise(ctx context.Context, promiseID uuid.UUID) (*models.Promise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.promises[promiseID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) FindPromise(ctx context.Context, userID, promiseID uuid.UUID) (*models.Promise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.promises[promiseID]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	return &p, nil
}

// userPromises returns the user's promises newest first. Caller holds mu.
func (m *Memory) userPromises(userID uuid.UUID) []models.Promise {
	var out []models.Promise
	for _, p := range m.promises {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *Memory) LatestPromise(ctx context.Context, userID uuid.UUID) (*models.Promise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.userPromises(userID)
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return &all[0], nil
}

func (m *Memory) LatestOpenPromise(ctx context.Context, userID uuid.UUID) (*models.Promise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.userPromises(userID) {
		if !p.Completed {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListPromises(ctx context.Context, userID uuid.UUID) ([]models.Promise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.userPromises(userID), nil
}

func (m *Memory) UpdateOpenPromises(ctx context.Context, userID uuid.UUID, upd PromiseUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if upd.Empty() {
		return 0, nil
	}
	var n int64
	for id, p := range m.promises {
		if p.UserID != userID || p.CompletedAt != nil {
			continue
		}
		if upd.Text != nil {
			p.Text = *upd.Text
		}
		if upd.TargetDate != nil {
			t := *upd.TargetDate
			p.TargetDate = &t
		}
		if upd.IsEcoFriendly != nil {
			p.IsEcoFriendly = *upd.IsEcoFriendly
		}
		if upd.WitnessEmail != nil {
			w := *upd.WitnessEmail
			p.WitnessEmail = &w
		}
		if upd.Visibility != nil {
			p.Visibility = *upd.Visibility
		}
		p.UpdatedAt = time.Now()
		m.promises[id] = p
		n++
	}
	return n, nil
}

func (m *Memory) CompletePromise(ctx context.Context, userID, promiseID uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.promises[promiseID]
	if !ok || p.UserID != userID || p.Completed {
		return false, nil
	}
	p.Completed = true
	p.CompletedAt = &at
	p.UpdatedAt = at
	m.promises[promiseID] = p
	return true, nil
}

func (m *Memory) MarkCompletionReminderSent(ctx context.Context, promiseID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.promises[promiseID]
	if !ok {
		return nil
	}
	p.CompletionReminderSentAt = &at
	m.promises[promiseID] = p
	return nil
}

func (m *Memory) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[inv.UserID]; !ok {
		return ErrNotFound
	}
	inv.PartnerEmail = models.NormalizeEmail(inv.PartnerEmail)
	stamp(&inv.Base)
	stored := *inv
	stored.User = nil
	m.invitations[inv.ID] = stored
	return nil
}

func (m *Memory) FindInvitation(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invitations[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u, ok := m.users[inv.UserID]; ok {
		inv.User = &u
	}
	return &inv, nil
}

func (m *Memory) ResolveInvitation(ctx context.Context, id uuid.UUID, status string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invitations[id]
	if !ok || inv.Status != models.InvitationStatusPending {
		return false, nil
	}
	inv.Status = status
	inv.RespondedAt = &at
	inv.UpdatedAt = at
	m.invitations[id] = inv
	return true, nil
}

func (m *Memory) ListInvitations(ctx context.Context, userID uuid.UUID) ([]models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Invitation
	for _, inv := range m.invitations {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) ListPartnerEmails(ctx context.Context, userID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[string]bool{}
	var emails []string
	for _, inv := range m.invitations {
		if inv.UserID == userID && inv.Status == models.InvitationStatusAccepted && !seen[inv.PartnerEmail] {
			seen[inv.PartnerEmail] = true
			emails = append(emails, inv.PartnerEmail)
		}
	}
	sort.Strings(emails)
	return emails, nil
}

func (m *Memory) DeletePartner(ctx context.Context, userID uuid.UUID, email string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = models.NormalizeEmail(email)
	var n int64
	for id, inv := range m.invitations {
		if inv.UserID == userID && inv.PartnerEmail == email {
			delete(m.invitations, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) RecordNotificationFailure(ctx context.Context, f *models.NotificationFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp(&f.Base)
	m.failures = append(m.failures, *f)
	return nil
}

// NotificationFailures returns the recorded dead letters
func (m *Memory) NotificationFailures() []models.NotificationFailure {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]models.NotificationFailure(nil), m.failures...)
}

// CountUsers returns the number of stored users
func (m *Memory) CountUsers() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.users)
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Gorm)(nil)
)
