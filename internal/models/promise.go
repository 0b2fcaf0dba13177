package models

import (
	"time"

	"github.com/google/uuid"
)

// Visibility controls who may see a promise
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityWitness Visibility = "witness"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether v is a known visibility value
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityWitness, VisibilityPublic:
		return true
	}
	return false
}

// Promise text length limits, counted in characters.
const (
	MinPromiseTextLen = 3
	MaxPromiseTextLen = 200
)

// Promise is a single daily commitment. Completed only ever moves false -> true,
// and CompletedAt is stamped by the same write.
type Promise struct {
	Base
	UserID                   uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Text                     string     `gorm:"column:promise_text;type:text;not null" json:"promise_text"`
	TargetDate               *time.Time `gorm:"column:target_date" json:"target_date"`
	Completed                bool       `gorm:"not null;default:false;index" json:"completed"`
	CompletedAt              *time.Time `gorm:"column:completed_at" json:"completed_at"`
	IsEcoFriendly            bool       `gorm:"column:is_eco_friendly;not null;default:false" json:"is_eco_friendly"`
	WitnessEmail             *string    `gorm:"column:witness_email" json:"witness_email"`
	Visibility               Visibility `gorm:"not null;default:'private'" json:"visibility"`
	CompletionReminderSentAt *time.Time `gorm:"column:completion_reminder_sent_at" json:"-"`
}

// IsOpen reports whether the promise can still be edited
func (p *Promise) IsOpen() bool {
	return p.CompletedAt == nil && !p.Completed
}
