package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
)

// Email is a fully rendered message
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered email and returns the provider's message id
type Sender interface {
	Send(ctx context.Context, email Email) (string, error)
}

// Client sends email through Resend
type Client struct {
	resend   *resend.Client
	from     string
	stubMode bool
	logger   *slog.Logger
}

// NewClient creates a new mail client. With stubMode set (or no API key)
// emails are logged instead of sent.
func NewClient(apiKey, from string, stubMode bool, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		from:     from,
		stubMode: stubMode || apiKey == "",
		logger:   logger,
	}
	if !c.stubMode {
		c.resend = resend.NewClient(apiKey)
	}
	return c
}

// StubMode reports whether the client only logs messages
func (c *Client) StubMode() bool {
	return c.stubMode
}

// Send delivers email via the Resend API
func (c *Client) Send(ctx context.Context, email Email) (string, error) {
	if c.stubMode {
		id := "stub-" + uuid.NewString()
		c.logger.InfoContext(ctx, "Email send stubbed",
			"id", id,
			"to", email.To,
			"subject", email.Subject,
		)
		return id, nil
	}

	sent, err := c.resend.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	return sent.Id, nil
}
