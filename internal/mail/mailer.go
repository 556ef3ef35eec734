package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Message is one outbound transactional email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer dispatches transactional email. Dispatch failure is expected to be
// non-fatal to callers; they record it and continue.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail over authenticated SMTP.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
}

// NewSMTPMailer creates an SMTP-backed mailer.
func NewSMTPMailer(host string, port int, username, password string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	message := gomail.NewMsg()
	if err := message.From(msg.From); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := message.To(msg.To); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	message.Subject(msg.Subject)
	message.SetBodyString(gomail.TypeTextHTML, msg.HTML)

	client, err := gomail.NewClient(m.host,
		gomail.WithPort(m.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.username),
		gomail.WithPassword(m.password),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogMailer logs instead of sending. Used in development and tests when no
// SMTP host is configured; the plaintext OTP and link are never logged.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.With(zap.String("service", "mail"))}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("mail dispatch skipped (no SMTP configured)",
		zap.String("to", MaskEmail(msg.To)),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// MaskEmail renders an address as ab***@domain.com for logs and signer-facing
// views.
func MaskEmail(email string) string {
	at := -1
	for i, c := range email {
		if c == '@' {
			at = i
			break
		}
	}
	if at <= 0 {
		return "***"
	}
	local := email[:at]
	domain := email[at:]
	if len(local) <= 2 {
		return local[:1] + "***" + domain
	}
	return local[:2] + "***" + domain
}
