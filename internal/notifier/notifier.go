// Package notifier emails a run report when the suite fails.
package notifier

import (
	"errors"
	"fmt"

	"github.com/ibeckermayer/chatcheck/internal/config"
	"github.com/ibeckermayer/chatcheck/internal/notifier/providers"
	"github.com/ibeckermayer/chatcheck/internal/report"
)

// ErrNoRecipient is returned when there is nobody to notify
var ErrNoRecipient = errors.New("no recipient address")

// Notifier handles sending failure notifications
type Notifier struct {
	sender Sender
}

// Sender defines the interface for email sending
type Sender interface {
	Send(to, subject, htmlBody, plainBody string) error
}

// New creates a new notifier with the given sender
func New(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// NewFromConfig creates a notifier based on configuration
func NewFromConfig(cfg config.EmailConfig) (*Notifier, error) {
	var sender Sender

	switch cfg.Provider {
	case "smtp":
		if cfg.SMTPHost == "" || cfg.FromAddr == "" {
			return nil, errors.New("smtp provider needs smtp_host and from_address")
		}
		sender = providers.NewSMTPSender(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPass,
			cfg.FromAddr,
		)
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}

	return New(sender), nil
}

// NotifyFailure mails the report to toAddr. Passing reports are not sent.
func (n *Notifier) NotifyFailure(r *report.Report, toAddr string) (sent bool, err error) {
	if r.Passed {
		return false, nil
	}
	if toAddr == "" {
		return false, ErrNoRecipient
	}
	if err := n.sender.Send(toAddr, r.Subject, r.HTMLBody, r.PlainBody); err != nil {
		return false, err
	}
	return true, nil
}
