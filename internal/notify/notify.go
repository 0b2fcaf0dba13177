// Package notify describes transactional emails and how call sites hand them
// off. Delivery is always best-effort: a failed dispatch never undoes the
// state change that triggered it.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Template names. Each has a manifest under internal/mail/templates.
const (
	TemplateWelcome            = "welcome"
	TemplateDailyReminder      = "daily-reminder"
	TemplateGentleReminder     = "gentle-reminder"
	TemplateCompletionReminder = "completion-reminder"
	TemplatePartnerInvitation  = "partner-invitation"
	TemplateInvitationAccepted = "invitation-accepted"
	TemplateInvitationDeclined = "invitation-declined"
	TemplatePartnerCompleted   = "partner-completed"
	TemplateWitnessCompleted   = "witness-completed"
)

// Notification is one email to one recipient
type Notification struct {
	Template     string    `json:"template"`
	To           string    `json:"to"`
	Name         string    `json:"name,omitempty"`
	PromiseText  string    `json:"promise_text,omitempty"`
	DashboardURL string    `json:"dashboard_url,omitempty"`
	Completed    bool      `json:"completed"`
	PromiseID    uuid.UUID `json:"promise_id,omitempty"`

	// Invitation fields
	PartnerEmail  string `json:"partner_email,omitempty"`
	InviterName   string `json:"inviter_name,omitempty"`
	InviterEmail  string `json:"inviter_email,omitempty"`
	InvitationURL string `json:"invitation_url,omitempty"`
	DeclineURL    string `json:"decline_url,omitempty"`
}

// Params returns the template parameters. Empty strings are omitted so the
// template schema's "required" list is meaningful.
func (n Notification) Params() map[string]interface{} {
	params := map[string]interface{}{
		"completed": n.Completed,
	}
	set := func(key, value string) {
		if value != "" {
			params[key] = value
		}
	}
	set("to", n.To)
	set("name", n.Name)
	set("promise_text", n.PromiseText)
	set("dashboard_url", n.DashboardURL)
	set("partner_email", n.PartnerEmail)
	set("inviter_name", n.InviterName)
	set("inviter_email", n.InviterEmail)
	set("invitation_url", n.InvitationURL)
	set("decline_url", n.DeclineURL)
	return params
}

// Dispatcher hands a notification off for delivery
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Deliverer renders and sends a notification synchronously
type Deliverer interface {
	Deliver(ctx context.Context, n Notification) error
}

// Send dispatches n and logs any failure. Returns whether the hand-off succeeded.
func Send(ctx context.Context, logger *slog.Logger, d Dispatcher, n Notification) bool {
	if d == nil {
		logger.WarnContext(ctx, "No notification dispatcher configured, dropping email",
			"template", n.Template, "to", n.To)
		return false
	}
	if err := d.Dispatch(ctx, n); err != nil {
		logger.ErrorContext(ctx, "Failed to dispatch notification",
			"template", n.Template,
			"to", n.To,
			"error", err.Error(),
		)
		return false
	}
	return true
}

// Inline delivers on the caller's goroutine. Used when no task queue is configured.
type Inline struct {
	deliverer Deliverer
}

// NewInline returns a Dispatcher that calls d directly
func NewInline(d Deliverer) *Inline {
	return &Inline{deliverer: d}
}

func (i *Inline) Dispatch(ctx context.Context, n Notification) error {
	return i.deliverer.Deliver(ctx, n)
}

// DashboardURL is the link to a user's dashboard in the web app
func DashboardURL(appURL string, userID uuid.UUID) string {
	return appURL + "/dashboard/" + userID.String()
}
