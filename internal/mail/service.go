package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jimdaga/promise/internal/notify"
)

// Service renders notifications with the template registry and hands them to a Sender
type Service struct {
	registry *Registry
	sender   Sender
	logger   *slog.Logger
}

// NewService creates a mail service
func NewService(registry *Registry, sender Sender, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{registry: registry, sender: sender, logger: logger}
}

// Deliver renders and sends n. A gentle reminder for a completed promise is
// dropped without error.
func (s *Service) Deliver(ctx context.Context, n notify.Notification) error {
	if n.Template == notify.TemplateGentleReminder && n.Completed {
		s.logger.InfoContext(ctx, "Skipping gentle reminder for completed promise",
			"to", n.To,
			"promise_id", n.PromiseID,
		)
		return nil
	}

	if n.To == "" {
		return fmt.Errorf("notification %s has no recipient", n.Template)
	}

	tmpl, ok := s.registry.Get(n.Template)
	if !ok {
		return fmt.Errorf("unknown email template: %s", n.Template)
	}

	subject, html, err := tmpl.Render(n.Params())
	if err != nil {
		return err
	}

	id, err := s.sender.Send(ctx, Email{To: n.To, Subject: subject, HTML: html})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Email sent",
		"template", n.Template,
		"to", n.To,
		"message_id", id,
	)
	return nil
}
