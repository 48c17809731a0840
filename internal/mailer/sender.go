package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/equipsense/equipsense/internal/logging"
)

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPSender delivers messages through an SMTP relay.
type SMTPSender struct {
	client *mail.Client
	from   string
}

// NewSMTPSender builds a sender for the given relay. Auth options are only
// attached when a user is configured; local relays accept anonymous mail.
func NewSMTPSender(host string, port int, user string, password string, from string, timeout time.Duration) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTimeout(timeout),
		// Plain relays without certificates stay usable in development.
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(user),
			mail.WithPassword(password),
		)
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating smtp client: %w", err)
	}

	return &SMTPSender{client: client, from: from}, nil
}

// Send delivers one message over the relay.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("error setting from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("error setting to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("error sending mail: %w", err)
	}
	return nil
}

// ConsoleSender writes messages to the log instead of delivering them.
// It is the development fallback when no SMTP host is configured.
type ConsoleSender struct {
	log logging.Logger
}

// NewConsoleSender returns a sender that logs messages.
func NewConsoleSender(log logging.Logger) *ConsoleSender {
	return &ConsoleSender{log: log}
}

// Send logs the message instead of sending it.
func (s *ConsoleSender) Send(ctx context.Context, msg *Message) error {
	s.log.Info(ctx, "console mail delivery",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}
