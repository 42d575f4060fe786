package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wneessen/go-mail"
)

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	const op = "SMTPMailer.Send"

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("%s: from: %w", op, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%s: to: %w", op, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("%s: client: %w", op, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP relay is configured.
type LogMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *LogMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	slog.Info("email not sent, smtp disabled", "to", to, "subject", subject, "bytes", len(htmlBody))
	m.mu.Lock()
	m.sent = append(m.sent, to+"|"+subject)
	m.mu.Unlock()
	return nil
}

// Sent lists "to|subject" for every message seen so far.
func (m *LogMailer) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}
