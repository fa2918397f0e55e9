// ABOUTME: ContactFallback captures name/email/message when quota is exhausted
// ABOUTME: Email is gated client-side; success is terminal, failure allows retry

package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrEmailRequired is returned when the form is submitted without an
// email address. No network call is made.
var ErrEmailRequired = errors.New("email is required")

// ContactSender posts the captured form fields.
type ContactSender interface {
	PostContact(ctx context.Context, sessionID, name, email, message string) error
}

// ContactView is the slice of the presentation adapter the fallback
// drives: busy state while sending, a field highlight on missing email,
// and the terminal confirmation.
type ContactView interface {
	SetContactBusy(busy bool)
	MarkContactEmailInvalid()
	ShowContactConfirmation()
}

// Contact is the one-time capture form workflow.
type Contact struct {
	sender ContactSender
	view   ContactView
	logger *slog.Logger
	done   bool
}

// NewContact creates the contact fallback workflow.
func NewContact(sender ContactSender, view ContactView, logger *slog.Logger) *Contact {
	if logger == nil {
		logger = slog.Default()
	}
	return &Contact{
		sender: sender,
		view:   view,
		logger: logger.With("component", "contact"),
	}
}

// Submitted reports whether the form was successfully sent.
func (c *Contact) Submitted() bool {
	return c.done
}

// Submit validates and sends the form. An empty email highlights the
// field and stops before any network call. On success the form is
// replaced with a confirmation and further submissions are no-ops; on
// failure the control is re-enabled for a user-initiated retry.
func (c *Contact) Submit(ctx context.Context, sessionID, name, email, message string) error {
	if c.done {
		return nil
	}

	email = strings.TrimSpace(email)
	if email == "" {
		c.view.MarkContactEmailInvalid()
		return ErrEmailRequired
	}

	c.view.SetContactBusy(true)
	err := c.sender.PostContact(ctx, sessionID, strings.TrimSpace(name), email, strings.TrimSpace(message))
	if err != nil {
		c.view.SetContactBusy(false)
		c.logger.Warn("contact submission failed", "error", err)
		return fmt.Errorf("submitting contact form: %w", err)
	}

	c.done = true
	c.view.ShowContactConfirmation()
	return nil
}
