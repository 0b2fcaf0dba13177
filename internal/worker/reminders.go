package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jimdaga/promise/internal/models"
	"github.com/jimdaga/promise/internal/notify"
	"github.com/jimdaga/promise/internal/store"
	"github.com/jimdaga/promise/internal/window"
)

// reminderClaimTTL outlives a day so a slot can never be claimed twice
const reminderClaimTTL = 36 * time.Hour

// SlotForHour maps a local hour to the reminder slot that fires in it
func SlotForHour(hour int) (models.ReminderTime, bool) {
	switch hour {
	case 8:
		return models.ReminderMorning, true
	case 12:
		return models.ReminderMidday, true
	case 18:
		return models.ReminderEvening, true
	}
	return "", false
}

// Claimer records that a reminder went out so reruns of the sweep skip it
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisClaimer claims keys with SETNX
type RedisClaimer struct {
	rdb *redis.Client
}

// NewRedisClaimer creates a claimer over rdb
func NewRedisClaimer(rdb *redis.Client) *RedisClaimer {
	return &RedisClaimer{rdb: rdb}
}

// Claim returns true if key was not yet set
func (c *RedisClaimer) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, "1", ttl).Result()
}

// Release drops a claim so the key can be taken again
func (c *RedisClaimer) Release(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// MemoryClaimer claims keys in process memory. Used when no Redis is
// configured, so claims do not survive a restart.
type MemoryClaimer struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

// NewMemoryClaimer creates an empty in-process claimer
func NewMemoryClaimer() *MemoryClaimer {
	return &MemoryClaimer{keys: make(map[string]time.Time), now: time.Now}
}

// Claim returns true if key was not yet set or its previous claim expired
func (c *MemoryClaimer) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, expires := range c.keys {
		if !now.Before(expires) {
			delete(c.keys, k)
		}
	}
	if _, ok := c.keys[key]; ok {
		return false, nil
	}
	c.keys[key] = now.Add(ttl)
	return true, nil
}

// Release drops a claim so the key can be taken again
func (c *MemoryClaimer) Release(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}

// NewRedisClient parses redisURL into a go-redis client
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return redis.NewClient(opt), nil
}

// reminderStore is the subset of store.Store the sweep reads
type reminderStore interface {
	ListUsersByReminderTime(ctx context.Context, rt models.ReminderTime) ([]models.User, error)
	LatestOpenPromise(ctx context.Context, userID uuid.UUID) (*models.Promise, error)
	LatestPromise(ctx context.Context, userID uuid.UUID) (*models.Promise, error)
}

// Sweeper sends the daily and gentle reminders for the slot that is due
type Sweeper struct {
	store      reminderStore
	dispatcher notify.Dispatcher
	claimer    Claimer
	logger     *slog.Logger
	location   *time.Location
	appURL     string
	now        func() time.Time
}

// NewSweeper creates a reminder sweeper. now defaults to time.Now.
func NewSweeper(st reminderStore, d notify.Dispatcher, c Claimer, logger *slog.Logger, loc *time.Location, appURL string, now func() time.Time) *Sweeper {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Sweeper{
		store:      st,
		dispatcher: d,
		claimer:    c,
		logger:     logger,
		location:   loc,
		appURL:     appURL,
		now:        now,
	}
}

// Sweep dispatches reminders to users whose slot matches the current local
// hour. Users with an open promise get a gentle reminder; users eligible for
// a new promise get the daily reminder. Returns the number dispatched.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now().In(s.location)
	slot, ok := SlotForHour(now.Hour())
	if !ok {
		s.logger.DebugContext(ctx, "No reminder slot this hour", "hour", now.Hour())
		return 0, nil
	}

	users, err := s.store.ListUsersByReminderTime(ctx, slot)
	if err != nil {
		return 0, fmt.Errorf("failed to list users for %s reminders: %w", slot, err)
	}

	sent := 0
	for _, user := range users {
		n, ok, err := s.reminderFor(ctx, &user, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to build reminder", "user_id", user.ID, "error", err.Error())
			continue
		}
		if !ok {
			continue
		}

		key := fmt.Sprintf("reminder:%s:%s:%s", user.ID, now.Format("2006-01-02"), slot)
		claimed, err := s.claimer.Claim(ctx, key, reminderClaimTTL)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to claim reminder", "key", key, "error", err.Error())
			continue
		}
		if !claimed {
			continue
		}

		if !notify.Send(ctx, s.logger, s.dispatcher, n) {
			// the next sweep in this slot retries
			if err := s.claimer.Release(ctx, key); err != nil {
				s.logger.ErrorContext(ctx, "Failed to release reminder claim", "key", key, "error", err.Error())
			}
			continue
		}
		sent++
	}

	s.logger.InfoContext(ctx, "Reminder sweep finished", "slot", slot, "users", len(users), "dispatched", sent)
	return sent, nil
}

func (s *Sweeper) reminderFor(ctx context.Context, user *models.User, now time.Time) (notify.Notification, bool, error) {
	dashboard := notify.DashboardURL(s.appURL, user.ID)

	open, err := s.store.LatestOpenPromise(ctx, user.ID)
	switch {
	case err == nil:
		return notify.Notification{
			Template:     notify.TemplateGentleReminder,
			To:           user.Email,
			Name:         user.Name,
			PromiseText:  open.Text,
			DashboardURL: dashboard,
			PromiseID:    open.ID,
		}, true, nil
	case !errors.Is(err, store.ErrNotFound):
		return notify.Notification{}, false, err
	}

	latest, err := s.store.LatestPromise(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return notify.Notification{}, false, err
		}
		latest = nil
	}
	if !window.CanCreateNew(latest, now) {
		return notify.Notification{}, false, nil
	}

	return notify.Notification{
		Template:     notify.TemplateDailyReminder,
		To:           user.Email,
		Name:         user.Name,
		DashboardURL: dashboard,
	}, true, nil
}
