// Package smtp delivers outbound mail over SMTP.
package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/wneessen/go-mail"

	"observe/internal/domain"
)

// Config holds SMTP relay settings.
type Config struct {
	From     string
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// Mailer sends each message over a fresh SMTP session.
type Mailer struct {
	cfg Config
}

// NewMailer creates a Mailer for the relay described by cfg.
func NewMailer(cfg Config) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Mailer{cfg: cfg}
}

// Send implements gateway.Mailer. Any failure wraps domain.ErrDeliveryFailed.
func (m *Mailer) Send(ctx context.Context, msg domain.Mail) error {
	out := mail.NewMsg()
	if err := out.From(m.cfg.From); err != nil {
		return fmt.Errorf("%w: sender %q: %w", domain.ErrDeliveryFailed, m.cfg.From, err)
	}
	if err := out.To(msg.To); err != nil {
		return fmt.Errorf("%w: recipient %q: %w", domain.ErrDeliveryFailed, msg.To, err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("%w: smtp client: %w", domain.ErrDeliveryFailed, err)
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	return nil
}

// linkSecret matches the last path segment of a link, where reset tokens live.
var linkSecret = regexp.MustCompile(`(https?://[^\s]*/)[^/\s]+`)

// LogMailer writes messages to the log instead of sending them. Link
// secrets are masked unless the mailer was built with WithLinks.
type LogMailer struct {
	logger    *slog.Logger
	showLinks bool
}

// LogOption configures a LogMailer.
type LogOption func(*LogMailer)

// WithLinks also writes the unmasked body at debug level, so a local
// developer can follow reset links.
func WithLinks() LogOption {
	return func(l *LogMailer) { l.showLinks = true }
}

// NewLogMailer creates a LogMailer writing to logger.
func NewLogMailer(logger *slog.Logger, opts ...LogOption) *LogMailer {
	l := &LogMailer{logger: logger}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Send implements gateway.Mailer.
func (l *LogMailer) Send(ctx context.Context, msg domain.Mail) error {
	l.logger.InfoContext(ctx, "outbound mail", "to", msg.To, "subject", msg.Subject,
		"body", linkSecret.ReplaceAllString(msg.Body, "${1}[redacted]"))
	if l.showLinks {
		l.logger.DebugContext(ctx, "outbound mail body", "to", msg.To, "body", msg.Body)
	}
	return nil
}
