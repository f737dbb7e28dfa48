// Package mail provides the outbound SMTP transport.
package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// ErrNotConfigured is returned when no SMTP transport is configured.
var ErrNotConfigured = errors.New("mail transport is not configured")

// Mailer delivers plain-text mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Config holds SMTP transport settings, read once at startup.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail over authenticated SMTP with STARTTLS.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

// NewSMTPMailer creates an SMTPMailer from the given transport config.
func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}

	return &SMTPMailer{client: client, from: from}, nil
}

// Send delivers a plain-text message. The error covers transport dialing
// and the SMTP conversation; callers decide whether a failed send aborts
// their flow.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	return nil
}

// Disabled is a Mailer that rejects every send. Used when no SMTP
// credentials are configured, so flows that need mail fail loudly instead
// of silently dropping messages.
type Disabled struct{}

// Send always returns ErrNotConfigured.
func (Disabled) Send(ctx context.Context, to, subject, body string) error {
	return ErrNotConfigured
}
