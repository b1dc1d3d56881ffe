package email

import (
	"context"
	"errors"

	"lotshoppr_backend/platform/config"
)

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("email: no recipients")

// Message is a plain-text email. From is an address only; the display name
// comes from FromName or the sender's configured default.
type Message struct {
	To         []string
	From       string
	FromName   string
	ReplyTo    string
	Subject    string
	Text       string
	InReplyTo  string
	References []string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NoopSender drops every message. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, msg Message) error {
	return nil
}

func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
