package models

import (
	"time"

	"github.com/google/uuid"
)

// Invitation status constants. Pending is the only non-terminal status.
const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusDeclined = "declined"
)

// Invitation asks a partner to hold the inviter accountable. PromiseText is a
// copy taken when the invitation was sent, not a live reference.
type Invitation struct {
	Base
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User      `gorm:"constraint:OnDelete:CASCADE;" json:"user,omitempty"`
	PartnerEmail string     `gorm:"column:partner_email;not null;index" json:"partner_email"`
	PromiseText  string     `gorm:"column:promise_text;type:text;not null" json:"promise_text"`
	Status       string     `gorm:"not null;default:'pending';index" json:"status"`
	RespondedAt  *time.Time `gorm:"column:responded_at" json:"responded_at"`
}

// TableName maps invitations onto accountability_invitations
func (Invitation) TableName() string {
	return "accountability_invitations"
}

// Resolved reports whether the invitation has left the pending state
func (i *Invitation) Resolved() bool {
	return i.Status != InvitationStatusPending
}
