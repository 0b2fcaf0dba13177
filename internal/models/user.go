package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReminderTime is the user's preferred time of day for reminder emails
type ReminderTime string

const (
	ReminderMorning ReminderTime = "morning"
	ReminderMidday  ReminderTime = "midday"
	ReminderEvening ReminderTime = "evening"
)

// Valid reports whether r is one of the known reminder slots
func (r ReminderTime) Valid() bool {
	switch r {
	case ReminderMorning, ReminderMidday, ReminderEvening:
		return true
	}
	return false
}

// Base holds the columns shared by every table: a UUID key and timestamps
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a fresh UUID when the caller did not set one.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// User represents a promise keeper. Email is stored normalised (see NormalizeEmail).
type User struct {
	Base
	Name         string       `gorm:"not null;default:''" json:"name"`
	Email        string       `gorm:"not null;uniqueIndex:idx_users_email" json:"email"`
	ReminderTime ReminderTime `gorm:"column:reminder_time;not null;default:'morning'" json:"reminder_time"`

	// Associations
	Promises    []Promise    `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Invitations []Invitation `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// NormalizeEmail lower-cases and trims an email address so lookups are
// case- and whitespace-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
